package handlers

import (
	"net/http"

	"market/internal/middleware"
	"market/internal/websocket"
)

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	websocket.ServeChat(w, r, h.hub, identity.AccountID, identity.Handle)
}
