package store

import (
	"context"

	"github.com/google/uuid"

	"market/internal/models"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, entry models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Data == "" {
		entry.Data = "{}"
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Data)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	limit, offset = pageBounds(limit, offset)
	rows := []models.AuditLog{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_id, action, entity_type, entity_id, data::text AS data, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
