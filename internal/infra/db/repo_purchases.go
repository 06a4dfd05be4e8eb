package db

import (
	"context"
	"time"

	"receiptd/internal/domain"

	"gorm.io/gorm"
)

// PurchaseRepository reads the purchase-family records of both the purchases
// and the payment transactions tables.
type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

type purchaseEventRow struct {
	ID        int64
	ProductID int64
	UserID    int64
	Type      string
	Source    string
	CreatedAt time.Time
}

// LatestEvent returns the most recent purchase, refund or chargeback across
// both tables. On equal timestamps a revoking event wins, then the higher id.
func (r *PurchaseRepository) LatestEvent(ctx context.Context, productID, userID int64) (*domain.PurchaseEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var row purchaseEventRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, product_id, user_id, type, source, created_at FROM (
			SELECT id, product_id, user_id, type, 'purchase' AS source, created_at
			FROM purchases
			WHERE product_id = ? AND user_id = ?
			UNION ALL
			SELECT id, product_id, user_id, type, 'transaction' AS source, created_at
			FROM transactions
			WHERE product_id = ? AND user_id = ? AND type IN ('purchase', 'refund', 'chargeback')
		) events
		ORDER BY created_at DESC,
			CASE WHEN type IN ('refund', 'chargeback') THEN 0 ELSE 1 END,
			id DESC
		LIMIT 1`,
		productID, userID, productID, userID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &domain.PurchaseEvent{
		ID:        row.ID,
		ProductID: row.ProductID,
		UserID:    row.UserID,
		Type:      domain.PurchaseEventType(row.Type),
		Source:    domain.PurchaseEventSource(row.Source),
		CreatedAt: row.CreatedAt,
	}, nil
}
