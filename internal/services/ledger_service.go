package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"market/internal/authority"
	"market/internal/common"
	"market/internal/db"
	"market/internal/metrics"
	"market/internal/models"
	"market/internal/money"
	"market/internal/store"
	"market/internal/websocket"
)

type LedgerConfig struct {
	GrantAmount         int64
	ElevatedGrantAmount int64
}

type LedgerService struct {
	txRunner db.TxRunner
	accounts AccountStore
	ledger   LedgerStore
	txStore  TransactionStore
	audit    AuditStore
	notifier BalanceNotifier
	metrics  metrics.Recorder
	locks    *accountLocks
	cfg      LedgerConfig
}

func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, ledger LedgerStore, txStore TransactionStore, audit AuditStore, notifier BalanceNotifier, recorder metrics.Recorder, cfg LedgerConfig) *LedgerService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &LedgerService{
		txRunner: txRunner,
		accounts: accounts,
		ledger:   ledger,
		txStore:  txStore,
		audit:    audit,
		notifier: notifier,
		metrics:  recorder,
		locks:    newAccountLocks(),
		cfg:      cfg,
	}
}

type TransferRequest struct {
	SenderID        string
	RecipientHandle string
	Amount          int64
}

type TransferResult struct {
	TransactionID   string `json:"transaction_id"`
	RecipientHandle string `json:"recipient"`
	Amount          int64  `json:"amount"`
	SenderBalance   int64  `json:"balance"`
}

// Transfer moves req.Amount from the sender to the recipient. Either both
// balances change and the transfer is journalled, or nothing changes.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	start := time.Now()
	result, err := s.transfer(ctx, req)
	s.metrics.RecordTransfer(outcome(err), time.Since(start))
	return result, err
}

func (s *LedgerService) transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	recipient, err := s.accounts.GetByHandle(ctx, req.RecipientHandle)
	if errors.Is(err, common.ErrNotFound) {
		return TransferResult{}, common.ErrRecipientNotFound
	}
	if err != nil {
		return TransferResult{}, storageFailure("transfer.recipient", err)
	}
	sender, err := s.accounts.GetByID(ctx, req.SenderID)
	if errors.Is(err, common.ErrNotFound) {
		return TransferResult{}, common.ErrSenderNotFound
	}
	if err != nil {
		return TransferResult{}, storageFailure("transfer.sender", err)
	}
	if req.Amount < 1 {
		return TransferResult{}, common.ErrInvalidAmount
	}
	if sender.ID == recipient.ID {
		return TransferResult{}, common.ErrSelfTransfer
	}

	unlock := s.locks.lock(sender.ID, recipient.ID)
	defer unlock()

	var transactionID string
	var senderBalance, recipientBalance int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		from, to, err := lockTwoAccounts(ctx, tx, s.accounts, sender.ID, recipient.ID)
		if err != nil {
			return err
		}
		if from.Balance < req.Amount {
			return common.ErrInsufficientFunds
		}
		if _, err := money.CheckedAdd(to.Balance, req.Amount); err != nil {
			return err
		}
		if senderBalance, err = s.accounts.AdjustBalance(ctx, tx, sender.ID, -req.Amount); err != nil {
			return err
		}
		if recipientBalance, err = s.accounts.AdjustBalance(ctx, tx, recipient.ID, req.Amount); err != nil {
			return err
		}

		transactionID = uuid.NewString()
		if err := s.txStore.Create(ctx, tx, models.Transaction{
			ID:          transactionID,
			Kind:        models.TransactionTransfer,
			SenderID:    stringPtr(sender.ID),
			RecipientID: stringPtr(recipient.ID),
			Amount:      req.Amount,
		}); err != nil {
			return err
		}
		entries := []models.LedgerEntry{
			{
				ID:            uuid.NewString(),
				TransactionID: transactionID,
				AccountID:     sender.ID,
				Kind:          models.TransactionTransfer,
				Amount:        -req.Amount,
				BalanceAfter:  senderBalance,
				Counterparty:  stringPtr(recipient.ID),
				Description:   "Transfer to " + recipient.Handle,
			},
			{
				ID:            uuid.NewString(),
				TransactionID: transactionID,
				AccountID:     recipient.ID,
				Kind:          models.TransactionTransfer,
				Amount:        req.Amount,
				BalanceAfter:  recipientBalance,
				Counterparty:  stringPtr(sender.ID),
				Description:   "Transfer from " + sender.Handle,
			},
		}
		if err := ensureBalanced(entries); err != nil {
			return err
		}
		return s.ledger.InsertEntries(ctx, tx, entries)
	})
	if err != nil {
		return TransferResult{}, storageFailure("transfer", err)
	}

	log.WithFields(log.Fields{
		"transaction_id": transactionID,
		"sender":         sender.Handle,
		"recipient":      recipient.Handle,
		"amount":         req.Amount,
	}).Info("transfer committed")
	s.notify(sender.ID, senderBalance, transactionID)
	s.notify(recipient.ID, recipientBalance, transactionID)

	return TransferResult{
		TransactionID:   transactionID,
		RecipientHandle: recipient.Handle,
		Amount:          req.Amount,
		SenderBalance:   senderBalance,
	}, nil
}

// Grant credits the fixed self-service amount to accountID.
func (s *LedgerService) Grant(ctx context.Context, accountID string) (int64, error) {
	balance, err := s.credit(ctx, accountID, s.cfg.GrantAmount, models.TransactionGrant, nil)
	s.metrics.RecordGrant(models.TransactionGrant, outcome(err))
	return balance, err
}

// GrantElevated credits the elevated amount to the caller's own account. A
// non-elevated caller is refused before anything is read or written.
func (s *LedgerService) GrantElevated(ctx context.Context, identity authority.Identity) (int64, error) {
	if err := identity.CheckElevated(); err != nil {
		s.metrics.RecordGrant(models.TransactionElevatedGrant, metrics.ResultRejected)
		return 0, err
	}
	audit := &models.AuditLog{
		ActorID:    stringPtr(identity.AccountID),
		Action:     "ledger.elevated_grant",
		EntityType: "account",
		EntityID:   identity.AccountID,
		Data:       auditData(map[string]any{"amount": s.cfg.ElevatedGrantAmount}),
	}
	balance, err := s.credit(ctx, identity.AccountID, s.cfg.ElevatedGrantAmount, models.TransactionElevatedGrant, audit)
	s.metrics.RecordGrant(models.TransactionElevatedGrant, outcome(err))
	return balance, err
}

func (s *LedgerService) credit(ctx context.Context, accountID string, amount int64, kind string, audit *models.AuditLog) (int64, error) {
	if amount < 1 {
		return 0, common.ErrInvalidAmount
	}
	unlock := s.locks.lock(accountID)
	defer unlock()

	var transactionID string
	var balance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if _, err := money.CheckedAdd(account.Balance, amount); err != nil {
			return err
		}
		if balance, err = s.accounts.AdjustBalance(ctx, tx, accountID, amount); err != nil {
			return err
		}
		transactionID = uuid.NewString()
		if err := s.txStore.Create(ctx, tx, models.Transaction{
			ID:          transactionID,
			Kind:        kind,
			RecipientID: stringPtr(accountID),
			Amount:      amount,
		}); err != nil {
			return err
		}
		if err := s.ledger.InsertEntries(ctx, tx, []models.LedgerEntry{{
			ID:            uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     accountID,
			Kind:          kind,
			Amount:        amount,
			BalanceAfter:  balance,
			Description:   grantDescription(kind),
		}}); err != nil {
			return err
		}
		if audit == nil {
			return nil
		}
		return s.audit.Log(ctx, tx, *audit)
	})
	if err != nil {
		return 0, storageFailure(kind, err)
	}
	s.notify(accountID, balance, transactionID)
	return balance, nil
}

func (s *LedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, storageFailure("balance", err)
	}
	return account.Balance, nil
}

func (s *LedgerService) History(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	entries, err := s.ledger.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, storageFailure("history", err)
	}
	return entries, nil
}

func (s *LedgerService) notify(accountID string, balance int64, transactionID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyBalance(accountID, websocket.BalanceUpdate{
		AccountID:     accountID,
		Balance:       balance,
		Formatted:     money.FormatUnits(balance),
		TransactionID: transactionID,
	})
}

func grantDescription(kind string) string {
	if kind == models.TransactionElevatedGrant {
		return "Elevated grant"
	}
	return "Grant"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, common.ErrStorageUnavailable):
		return metrics.ResultError
	default:
		return metrics.ResultRejected
	}
}

func ensureBalanced(entries []models.LedgerEntry) error {
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if sum != 0 {
		return errUnbalanced
	}
	return nil
}

// lockTwoAccounts takes row locks in id order and returns the rows in
// argument order.
func lockTwoAccounts(ctx context.Context, tx store.Getter, accounts AccountStore, senderID, recipientID string) (models.Account, models.Account, error) {
	leftID, rightID := orderedIDs(senderID, recipientID)
	left, err := accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.Account{}, models.Account{}, missingParty(err, leftID == senderID)
	}
	right, err := accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.Account{}, models.Account{}, missingParty(err, rightID == senderID)
	}
	if senderID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func missingParty(err error, isSender bool) error {
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if isSender {
		return common.ErrSenderNotFound
	}
	return common.ErrRecipientNotFound
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
