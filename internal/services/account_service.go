package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"market/internal/auth"
	"market/internal/common"
	"market/internal/db"
	"market/internal/models"
	"market/internal/validator"
)

type AccountConfig struct {
	StartingBalance int64
	ElevatedHandle  string
}

type SessionIssuer interface {
	Issue(account models.Account) (string, error)
}

type AccountService struct {
	txRunner db.TxRunner
	accounts AccountStore
	roles    RoleStore
	ledger   LedgerStore
	txStore  TransactionStore
	audit    AuditStore
	sessions SessionIssuer
	cfg      AccountConfig
}

func NewAccountService(txRunner db.TxRunner, accounts AccountStore, roles RoleStore, ledger LedgerStore, txStore TransactionStore, audit AuditStore, sessions SessionIssuer, cfg AccountConfig) *AccountService {
	return &AccountService{
		txRunner: txRunner,
		accounts: accounts,
		roles:    roles,
		ledger:   ledger,
		txStore:  txStore,
		audit:    audit,
		sessions: sessions,
		cfg:      cfg,
	}
}

type PublicProfile struct {
	Handle    string    `json:"handle"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// Register creates an account holding the starting balance. The configured
// elevated handle receives the elevated role if no account holds it yet.
func (s *AccountService) Register(ctx context.Context, handle, password string) (models.Account, error) {
	if err := validator.ValidateHandle(handle); err != nil {
		return models.Account{}, err
	}
	if err := validator.ValidatePassword(password); err != nil {
		return models.Account{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Account{}, err
	}

	role := models.RoleStandard
	if s.cfg.ElevatedHandle != "" && handle == s.cfg.ElevatedHandle {
		taken, err := s.roles.HasElevated(ctx)
		if err != nil {
			return models.Account{}, storageFailure("register.role", err)
		}
		if !taken {
			role = models.RoleElevated
		}
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Handle:       handle,
		PasswordHash: hash,
		Balance:      s.cfg.StartingBalance,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return err
		}
		if account.Balance > 0 {
			transactionID := uuid.NewString()
			if err := s.txStore.Create(ctx, tx, models.Transaction{
				ID:          transactionID,
				Kind:        models.TransactionOpening,
				RecipientID: stringPtr(account.ID),
				Amount:      account.Balance,
			}); err != nil {
				return err
			}
			if err := s.ledger.InsertEntries(ctx, tx, []models.LedgerEntry{{
				ID:            uuid.NewString(),
				TransactionID: transactionID,
				AccountID:     account.ID,
				Kind:          models.TransactionOpening,
				Amount:        account.Balance,
				BalanceAfter:  account.Balance,
				Description:   "Opening balance",
			}}); err != nil {
				return err
			}
		}
		return s.audit.Log(ctx, tx, models.AuditLog{
			ActorID:    stringPtr(account.ID),
			Action:     "account.register",
			EntityType: "account",
			EntityID:   account.ID,
			Data:       auditData(map[string]any{"handle": handle, "role": role}),
		})
	})
	if err != nil {
		return models.Account{}, storageFailure("register", err)
	}
	log.WithFields(log.Fields{"handle": handle, "role": role}).Info("account registered")
	return account, nil
}

// Login verifies credentials and opens a session. Every credential failure
// looks the same to the caller.
func (s *AccountService) Login(ctx context.Context, handle, password string) (string, models.Account, error) {
	if err := validator.ValidateHandle(handle); err != nil {
		return "", models.Account{}, common.ErrInvalidCredentials
	}
	account, err := s.accounts.GetByHandle(ctx, handle)
	if errors.Is(err, common.ErrNotFound) {
		return "", models.Account{}, common.ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Account{}, storageFailure("login", err)
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return "", models.Account{}, common.ErrInvalidCredentials
	}
	token, err := s.sessions.Issue(account)
	if err != nil {
		return "", models.Account{}, err
	}
	return token, account, nil
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return models.Account{}, storageFailure("profile", err)
	}
	return account, nil
}

func (s *AccountService) PublicProfile(ctx context.Context, handle string) (PublicProfile, error) {
	account, err := s.accounts.GetByHandle(ctx, handle)
	if err != nil {
		return PublicProfile{}, storageFailure("public_profile", err)
	}
	return PublicProfile{Handle: account.Handle, Bio: account.Bio, CreatedAt: account.CreatedAt}, nil
}

// Promote moves the elevated role to handle, demoting the previous holder in
// the same transaction.
func (s *AccountService) Promote(ctx context.Context, handle string) (models.Account, error) {
	account, err := s.accounts.GetByHandle(ctx, handle)
	if err != nil {
		return models.Account{}, storageFailure("promote", err)
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.roles.ClearElevated(ctx, tx); err != nil {
			return err
		}
		if err := s.roles.SetRole(ctx, tx, account.ID, models.RoleElevated); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, models.AuditLog{
			Action:     "account.promote",
			EntityType: "account",
			EntityID:   account.ID,
			Data:       auditData(map[string]any{"handle": handle}),
		})
	})
	if err != nil {
		return models.Account{}, storageFailure("promote", err)
	}
	account.Role = models.RoleElevated
	return account, nil
}
