package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"market/internal/authority"
	"market/internal/config"
	"market/internal/db"
	"market/internal/handlers"
	"market/internal/logging"
	"market/internal/metrics"
	"market/internal/services"
	"market/internal/session"
	"market/internal/store"
	"market/internal/websocket"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("failed to apply migrations")
		}
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	defer database.Close()

	revocations, closeRevocations := revocationStore(cfg)
	defer closeRevocations()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus("market")
	if err := recorder.Register(registry); err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}

	accounts := store.NewAccountStore(database)
	roles := store.NewRoleStore(database)
	ledger := store.NewLedgerStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	listings := store.NewListingStore(database)
	reports := store.NewReportStore(database)
	txRunner := db.NewTxRunner(database)

	hub := websocket.NewHub(cfg.ChatBuffer, recorder)
	guard := authority.NewGuard(cfg.JWTSecret, cfg.TokenTTL, accounts, revocations)

	accountService := services.NewAccountService(txRunner, accounts, roles, ledger, transactions, audit, guard, services.AccountConfig{
		StartingBalance: cfg.StartingBalance,
		ElevatedHandle:  cfg.ElevatedHandle,
	})
	ledgerService := services.NewLedgerService(txRunner, accounts, ledger, transactions, audit, hub, recorder, services.LedgerConfig{
		GrantAmount:         cfg.GrantAmount,
		ElevatedGrantAmount: cfg.ElevatedGrantAmount,
	})
	adminService := services.NewAdminService(txRunner, accounts, listings, reports, ledger, transactions, audit)

	handler := handlers.New(cfg, guard, accountService, ledgerService, adminService, hub, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"addr": server.Addr, "env": cfg.AppEnv}).Info("market API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	log.Info("market API stopped")
}

// revocationStore prefers redis so logouts survive restarts and are shared
// between replicas.
func revocationStore(cfg config.Config) (session.RevocationStore, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, session revocations are kept in memory")
		return session.NewMemoryStore(), func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisStore, err := session.NewRedisStoreFromURL(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	return redisStore, func() {
		if err := redisStore.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis")
		}
	}
}
