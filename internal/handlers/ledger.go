package handlers

import (
	"errors"
	"net/http"

	"market/internal/common"
	"market/internal/middleware"
	"market/internal/money"
	"market/internal/services"
)

type transferRequest struct {
	Recipient string      `json:"recipient"`
	Amount    amountField `json:"amount"`
}

func balanceBody(balance int64) map[string]any {
	return map[string]any{
		"balance":   balance,
		"formatted": money.FormatUnits(balance),
	}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	balance, err := h.ledger.Balance(r.Context(), identity.AccountID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balanceBody(balance))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	limit, offset := pageParams(r)
	entries, err := h.ledger.History(r.Context(), identity.AccountID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Transfer leaves amount validation to the ledger so that an unknown
// recipient is reported ahead of a malformed amount.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, parseErr := req.Amount.units()
	if parseErr != nil {
		amount = 0
	}
	result, err := h.ledger.Transfer(r.Context(), services.TransferRequest{
		SenderID:        identity.AccountID,
		RecipientHandle: req.Recipient,
		Amount:          amount,
	})
	if errors.Is(err, common.ErrInvalidAmount) && parseErr != nil {
		err = parseErr
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	balance, err := h.ledger.Grant(r.Context(), identity.AccountID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balanceBody(balance))
}
