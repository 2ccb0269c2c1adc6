package store

import (
	"context"

	"market/internal/models"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, account_id, kind, amount, balance_after, counterparty, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.ID, entry.TransactionID, entry.AccountID, entry.Kind,
			entry.Amount, entry.BalanceAfter, entry.Counterparty, entry.Description,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = pageBounds(limit, offset)
	rows := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT l.id, l.transaction_id, l.account_id, l.kind, l.amount, l.balance_after,
		       c.handle AS counterparty, l.description, l.created_at
		FROM ledger_entries l
		LEFT JOIN accounts c ON c.id = l.counterparty
		WHERE l.account_id = $1
		ORDER BY l.created_at DESC, l.id
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`, accountID)
	return sum, err
}

// Reconcile compares every stored balance with the sum of its ledger
// entries. Only mismatching accounts are returned.
func (s *LedgerStore) Reconcile(ctx context.Context) ([]models.Reconciliation, error) {
	rows := []models.Reconciliation{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id AS account_id,
		       a.handle,
		       a.balance,
		       COALESCE(SUM(l.amount), 0) AS ledger_sum,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		GROUP BY a.id, a.handle, a.balance
		HAVING a.balance <> COALESCE(SUM(l.amount), 0)
		ORDER BY a.handle
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
