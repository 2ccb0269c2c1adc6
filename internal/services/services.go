package services

import (
	"context"
	"encoding/json"
	"errors"

	log "github.com/sirupsen/logrus"

	"market/internal/common"
	"market/internal/models"
	"market/internal/store"
	"market/internal/websocket"
)

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, account models.Account) error
	GetByHandle(ctx context.Context, handle string) (models.Account, error)
	GetByID(ctx context.Context, accountID string) (models.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	AdjustBalance(ctx context.Context, tx store.Getter, accountID string, delta int64) (int64, error)
	Delete(ctx context.Context, tx store.Execer, accountID string) error
	List(ctx context.Context, limit, offset int) ([]models.Account, error)
}

type RoleStore interface {
	HasElevated(ctx context.Context) (bool, error)
	SetRole(ctx context.Context, tx store.Execer, accountID string, role models.Role) error
	ClearElevated(ctx context.Context, tx store.Execer) error
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []models.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
	Reconcile(ctx context.Context) ([]models.Reconciliation, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, txn models.Transaction) error
	ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, entry models.AuditLog) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type ListingStore interface {
	Delete(ctx context.Context, tx store.Execer, listingID string) error
	CountBySeller(ctx context.Context, sellerID string) (int, error)
}

type ReportStore interface {
	List(ctx context.Context, limit, offset int) ([]models.Report, error)
}

type BalanceNotifier interface {
	NotifyBalance(accountID string, update websocket.BalanceUpdate)
}

var errUnbalanced = errors.New("ledger entries do not balance")

// storageFailure passes typed failures through and replaces anything else
// with ErrStorageUnavailable after logging it.
func storageFailure(op string, err error) error {
	if err == nil || common.IsDomainError(err) {
		return err
	}
	log.WithError(err).WithField("op", op).Error("storage failure")
	return common.ErrStorageUnavailable
}

func auditData(values map[string]any) string {
	data, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func stringPtr(value string) *string {
	return &value
}
