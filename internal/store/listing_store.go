package store

import (
	"context"

	"market/internal/common"
)

// ListingStore covers the part of the product catalogue the moderation
// surface needs.
type ListingStore struct {
	db DB
}

func NewListingStore(db DB) *ListingStore {
	return &ListingStore{db: db}
}

func (s *ListingStore) Delete(ctx context.Context, tx Execer, listingID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, listingID)
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

func (s *ListingStore) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM products WHERE seller_id = $1`, sellerID)
	return count, err
}
