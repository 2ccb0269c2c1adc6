package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.PublicProfile(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
