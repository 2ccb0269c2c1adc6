package store

import (
	"context"
	"database/sql"
	"errors"

	"market/internal/common"
	"market/internal/models"
)

type AccountStore struct {
	db DB
}

const accountColumns = `id, handle, password_hash, balance, bio, role, created_at`

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, account models.Account) error {
	role := account.Role
	if role == "" {
		role = models.RoleStandard
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, handle, password_hash, balance, bio, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.ID, account.Handle, account.PasswordHash, account.Balance, account.Bio, string(role))
	if pqCode(err) == pqUniqueViolation {
		return common.ErrDuplicateHandle
	}
	return err
}

func (s *AccountStore) GetByHandle(ctx context.Context, handle string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle)
	if err != nil {
		return models.Account{}, notFound(err)
	}
	return row, nil
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return models.Account{}, notFound(err)
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return models.Account{}, notFound(err)
	}
	return row, nil
}

// AdjustBalance applies delta in a single conditional statement and returns
// the resulting balance. The row is left untouched when the result would be
// negative.
func (s *AccountStore) AdjustBalance(ctx context.Context, tx Getter, accountID string, delta int64) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, accountID)
	switch {
	case err == nil:
		return balance, nil
	case pqCode(err) == pqNumericOverflow:
		return 0, common.ErrOverflow
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID); err != nil {
		return 0, err
	}
	if !exists {
		return 0, common.ErrNotFound
	}
	return 0, common.ErrInsufficientFunds
}

func (s *AccountStore) Delete(ctx context.Context, tx Execer, accountID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	limit, offset = pageBounds(limit, offset)
	rows := []models.Account{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at DESC, handle
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
