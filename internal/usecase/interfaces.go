package usecase

import (
	"context"
	"time"

	"receiptd/internal/domain"
)

type InstallationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Installation, error)
	GetByDirectedID(ctx context.Context, productID int64, directedID string) (*domain.Installation, error)
}

// InstallationRecorder creates an installation on first use and returns the
// existing one, unchanged, afterwards. A new installation is only kept when
// confirm returns nil.
type InstallationRecorder interface {
	Record(ctx context.Context, product domain.Product, userID int64, confirm func(domain.Installation) error) (*domain.Installation, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// PurchaseRepository returns domain.ErrNotFound when the user has no
// purchase-family record for the product.
type PurchaseRepository interface {
	LatestEvent(ctx context.Context, productID, userID int64) (*domain.PurchaseEvent, error)
}

type KeyProvider interface {
	Material(ctx context.Context) (*domain.KeyMaterial, error)
}

type ReceiptSigner interface {
	Sign(ctx context.Context, claims domain.ReceiptClaims) (string, error)
}

type TokenParser interface {
	ParseReceipt(token string, material *domain.KeyMaterial) (domain.ReceiptClaims, error)
}

// ReceiptLinks renders the URLs embedded in receipts.
type ReceiptLinks interface {
	VerifyURL(productID int64) string
	DiagnosticVerifyURL(productID int64) string
	ReissueURL() string
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
