package store

import (
	"context"

	"market/internal/models"
)

type ReportStore struct {
	db DB
}

func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) List(ctx context.Context, limit, offset int) ([]models.Report, error) {
	limit, offset = pageBounds(limit, offset)
	rows := []models.Report{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, reporter_id, target_id, target_handle, reason, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
