package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"market/internal/common"
	"market/internal/validator"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorMapping is checked in order; wrapped sentinels come before the
// sentinel they wrap.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{validator.ErrInvalidHandle, http.StatusBadRequest, "invalid_handle"},
	{validator.ErrInvalidPassword, http.StatusBadRequest, "invalid_password"},
	{common.ErrRecipientNotFound, http.StatusNotFound, "recipient_not_found"},
	{common.ErrSenderNotFound, http.StatusNotFound, "sender_not_found"},
	{common.ErrNotFound, http.StatusNotFound, "not_found"},
	{common.ErrDuplicateHandle, http.StatusConflict, "handle_taken"},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{common.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{common.ErrForbidden, http.StatusForbidden, "forbidden"},
	{common.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{common.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},
	{common.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{common.ErrOverflow, http.StatusUnprocessableEntity, "amount_overflow"},
	{common.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

func errorStatus(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("unhandled service error")
	}
	respondError(w, status, code)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return false
	}
	return true
}

func pageParams(r *http.Request) (int, int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
