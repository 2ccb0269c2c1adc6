package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"market/internal/config"
	"market/internal/middleware"
	"market/internal/websocket"
)

type Handler struct {
	cfg      config.Config
	guard    SessionGuard
	accounts AccountService
	ledger   LedgerService
	admin    AdminService
	hub      *websocket.Hub
	metrics  http.Handler
}

func New(cfg config.Config, guard SessionGuard, accounts AccountService, ledger LedgerService, admin AdminService, hub *websocket.Hub, metrics http.Handler) *Handler {
	return &Handler{
		cfg:      cfg,
		guard:    guard,
		accounts: accounts,
		ledger:   ledger,
		admin:    admin,
		hub:      hub,
		metrics:  metrics,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.guard)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticated).Post("/logout", h.Logout)
		r.With(authenticated).Get("/me", h.Me)
	})
	router.With(authenticated).Get("/accounts/{handle}", h.GetAccount)

	router.Route("/ledger", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/balance", h.Balance)
		r.Get("/history", h.History)
		r.Post("/transfer", h.Transfer)
		r.Post("/grant", h.Grant)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireElevated())
		r.Post("/grant", h.AdminGrant)
		r.Get("/accounts", h.AdminListAccounts)
		r.Delete("/accounts/{id}", h.AdminDeleteAccount)
		r.Delete("/listings/{id}", h.AdminDeleteListing)
		r.Get("/reports", h.AdminListReports)
		r.Get("/audit", h.AdminListAudit)
		r.Get("/transactions", h.AdminListTransactions)
		r.Get("/reconcile", h.AdminReconcile)
	})

	router.With(authenticated).Get("/ws/chat", h.Chat)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return router
}
