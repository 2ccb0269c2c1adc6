package handlers

import (
	"context"

	"market/internal/authority"
	"market/internal/middleware"
	"market/internal/models"
	"market/internal/services"
)

type SessionGuard interface {
	middleware.Authenticator
	Revoke(ctx context.Context, identity authority.Identity) error
}

type AccountService interface {
	Register(ctx context.Context, handle, password string) (models.Account, error)
	Login(ctx context.Context, handle, password string) (string, models.Account, error)
	Profile(ctx context.Context, accountID string) (models.Account, error)
	PublicProfile(ctx context.Context, handle string) (services.PublicProfile, error)
}

type LedgerService interface {
	Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	Grant(ctx context.Context, accountID string) (int64, error)
	GrantElevated(ctx context.Context, identity authority.Identity) (int64, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
}

type AdminService interface {
	DeleteAccount(ctx context.Context, identity authority.Identity, accountID string) error
	DeleteListing(ctx context.Context, identity authority.Identity, listingID string) error
	ListAccounts(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Account, error)
	ListReports(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Report, error)
	ListAudit(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.AuditLog, error)
	ListTransactions(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Transaction, error)
	Reconcile(ctx context.Context, identity authority.Identity) ([]models.Reconciliation, error)
}
