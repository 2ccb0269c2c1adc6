package services

import (
	"context"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"market/internal/authority"
	"market/internal/common"
	"market/internal/db"
	"market/internal/models"
)

// AdminService holds the moderation operations. Every method re-checks the
// caller's authority before touching storage.
type AdminService struct {
	txRunner db.TxRunner
	accounts AccountStore
	listings ListingStore
	reports  ReportStore
	ledger   LedgerStore
	txStore  TransactionStore
	audit    AuditStore
}

func NewAdminService(txRunner db.TxRunner, accounts AccountStore, listings ListingStore, reports ReportStore, ledger LedgerStore, txStore TransactionStore, audit AuditStore) *AdminService {
	return &AdminService{
		txRunner: txRunner,
		accounts: accounts,
		listings: listings,
		reports:  reports,
		ledger:   ledger,
		txStore:  txStore,
		audit:    audit,
	}
}

// DeleteAccount removes an account together with its listings, reports and
// ledger entries. The elevated account cannot remove itself.
func (s *AdminService) DeleteAccount(ctx context.Context, identity authority.Identity, accountID string) error {
	if err := identity.CheckElevated(); err != nil {
		return err
	}
	if accountID == identity.AccountID {
		return common.ErrForbidden
	}
	listings, err := s.listings.CountBySeller(ctx, accountID)
	if err != nil {
		return storageFailure("admin.delete_account", err)
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Delete(ctx, tx, accountID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, models.AuditLog{
			ActorID:    stringPtr(identity.AccountID),
			Action:     "account.delete",
			EntityType: "account",
			EntityID:   accountID,
			Data:       auditData(map[string]any{"listings_removed": listings}),
		})
	})
	if err != nil {
		return storageFailure("admin.delete_account", err)
	}
	log.WithFields(log.Fields{"account_id": accountID, "by": identity.Handle}).Info("account deleted")
	return nil
}

func (s *AdminService) DeleteListing(ctx context.Context, identity authority.Identity, listingID string) error {
	if err := identity.CheckElevated(); err != nil {
		return err
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.listings.Delete(ctx, tx, listingID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, models.AuditLog{
			ActorID:    stringPtr(identity.AccountID),
			Action:     "listing.delete",
			EntityType: "listing",
			EntityID:   listingID,
		})
	})
	return storageFailure("admin.delete_listing", err)
}

func (s *AdminService) ListAccounts(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Account, error) {
	if err := identity.CheckElevated(); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx, limit, offset)
	return accounts, storageFailure("admin.list_accounts", err)
}

func (s *AdminService) ListReports(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Report, error) {
	if err := identity.CheckElevated(); err != nil {
		return nil, err
	}
	reports, err := s.reports.List(ctx, limit, offset)
	return reports, storageFailure("admin.list_reports", err)
}

func (s *AdminService) ListAudit(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.AuditLog, error) {
	if err := identity.CheckElevated(); err != nil {
		return nil, err
	}
	logs, err := s.audit.List(ctx, limit, offset)
	return logs, storageFailure("admin.list_audit", err)
}

func (s *AdminService) ListTransactions(ctx context.Context, identity authority.Identity, limit, offset int) ([]models.Transaction, error) {
	if err := identity.CheckElevated(); err != nil {
		return nil, err
	}
	txns, err := s.txStore.ListAll(ctx, limit, offset)
	return txns, storageFailure("admin.list_transactions", err)
}

// Reconcile lists accounts whose stored balance disagrees with their ledger.
func (s *AdminService) Reconcile(ctx context.Context, identity authority.Identity) ([]models.Reconciliation, error) {
	if err := identity.CheckElevated(); err != nil {
		return nil, err
	}
	rows, err := s.ledger.Reconcile(ctx)
	return rows, storageFailure("admin.reconcile", err)
}
