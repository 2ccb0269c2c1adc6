package store

import (
	"context"

	"market/internal/common"
	"market/internal/models"
)

// RoleStore manages the single elevated account.
type RoleStore struct {
	db DB
}

func NewRoleStore(db DB) *RoleStore {
	return &RoleStore{db: db}
}

func (s *RoleStore) HasElevated(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM accounts WHERE role = $1`, string(models.RoleElevated))
	return count > 0, err
}

func (s *RoleStore) SetRole(ctx context.Context, tx Execer, accountID string, role models.Role) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET role = $1, updated_at = NOW()
		WHERE id = $2
	`, string(role), accountID)
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

// ClearElevated demotes whichever account currently holds the elevated role.
func (s *RoleStore) ClearElevated(ctx context.Context, tx Execer) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET role = $1, updated_at = NOW()
		WHERE role = $2
	`, string(models.RoleStandard), string(models.RoleElevated))
	return err
}
