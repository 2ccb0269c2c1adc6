package store

import (
	"context"

	"market/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, txn models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, sender_id, recipient_id, amount)
		VALUES ($1, $2, $3, $4, $5)
	`, txn.ID, txn.Kind, txn.SenderID, txn.RecipientID, txn.Amount)
	return err
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	limit, offset = pageBounds(limit, offset)
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, kind, sender_id, recipient_id, amount, created_at
		FROM transactions
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
