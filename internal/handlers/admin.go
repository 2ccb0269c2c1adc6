package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"market/internal/authority"
	"market/internal/middleware"
)

func elevatedIdentity(w http.ResponseWriter, r *http.Request) (authority.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return authority.Anonymous(), false
	}
	return identity, true
}

func (h *Handler) AdminGrant(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	balance, err := h.ledger.GrantElevated(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balanceBody(balance))
}

func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	accounts, err := h.admin.ListAccounts(r.Context(), identity, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) AdminDeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteAccount(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminDeleteListing(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteListing(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminListReports(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	reports, err := h.admin.ListReports(r.Context(), identity, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) AdminListAudit(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	logs, err := h.admin.ListAudit(r.Context(), identity, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	txns, err := h.admin.ListTransactions(r.Context(), identity, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) AdminReconcile(w http.ResponseWriter, r *http.Request) {
	identity, ok := elevatedIdentity(w, r)
	if !ok {
		return
	}
	rows, err := h.admin.Reconcile(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balanced":   len(rows) == 0,
		"mismatches": rows,
	})
}
