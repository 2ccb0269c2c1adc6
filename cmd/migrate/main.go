package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"market/internal/config"
	"market/internal/db"
	"market/internal/logging"
	"market/internal/services"
	"market/internal/store"
)

const usage = `usage: migrate <command>

commands:
  up                apply all pending migrations
  down [n]          roll back n migrations (default 1)
  status            print the current schema version
  promote <handle>  make handle the single elevated account`

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"up"}
	}

	var err error
	switch args[0] {
	case "up", "down", "status":
		err = runSchema(cfg, args)
	case "promote":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		err = promote(cfg, args[1])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).WithField("command", args[0]).Fatal("migrate failed")
	}
}

func runSchema(cfg config.Config, args []string) error {
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	migrator, err := db.NewMigrator(database.DB)
	if err != nil {
		_ = database.Close()
		return err
	}
	defer migrator.Close()

	switch args[0] {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}
		if err := migrator.Down(steps); err != nil {
			return err
		}
	}

	version, dirty, err := migrator.Status()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("schema version")
	return nil
}

func promote(cfg config.Config, handle string) error {
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	accounts := services.NewAccountService(
		db.NewTxRunner(database),
		store.NewAccountStore(database),
		store.NewRoleStore(database),
		store.NewLedgerStore(database),
		store.NewTransactionStore(database),
		store.NewAuditStore(database),
		nil,
		services.AccountConfig{StartingBalance: cfg.StartingBalance, ElevatedHandle: cfg.ElevatedHandle},
	)
	account, err := accounts.Promote(context.Background(), handle)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"handle": account.Handle, "id": account.ID}).Info("account promoted")
	return nil
}
