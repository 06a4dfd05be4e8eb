package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receiptd/internal/domain"
)

const (
	DefaultReceiptTTL    = 48 * time.Hour
	DiagnosticReceiptTTL = 24 * time.Hour
)

// ReceiptBuilder assembles the claims of a receipt for one installation.
type ReceiptBuilder struct {
	Installations InstallationRepository
	Products      ProductRepository
	Links         ReceiptLinks
	Issuer        string
	TTL           time.Duration
	DiagnosticTTL time.Duration
	Clock         Clock
}

// Build validates the flavour before touching storage, so an unknown flavour
// is reported as domain.ErrInvalidFlavour even for an unknown installation.
func (b *ReceiptBuilder) Build(ctx context.Context, installationID int64, flavour string) (domain.ReceiptClaims, error) {
	f, err := domain.ParseFlavour(flavour)
	if err != nil {
		return domain.ReceiptClaims{}, err
	}
	inst, err := b.Installations.GetByID(ctx, installationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReceiptClaims{}, fmt.Errorf("installation %d: %w", installationID, domain.ErrNotFound)
		}
		return domain.ReceiptClaims{}, err
	}
	product, err := b.Products.GetByID(ctx, inst.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReceiptClaims{}, fmt.Errorf("product %d: %w", inst.ProductID, domain.ErrNotFound)
		}
		return domain.ReceiptClaims{}, err
	}
	return b.ClaimsFor(*inst, *product, f), nil
}

// ClaimsFor is the pure part of Build.
func (b *ReceiptBuilder) ClaimsFor(inst domain.Installation, product domain.Product, flavour domain.Flavour) domain.ReceiptClaims {
	now := b.Clock.now()
	ttl := b.TTL
	if ttl <= 0 {
		ttl = DefaultReceiptTTL
	}
	verify := b.Links.VerifyURL(product.ID)
	var kind string
	if flavour.Diagnostic() {
		ttl = b.DiagnosticTTL
		if ttl <= 0 {
			ttl = DiagnosticReceiptTTL
		}
		verify = b.Links.DiagnosticVerifyURL(product.ID)
		kind = string(flavour)
	}
	return domain.ReceiptClaims{
		Type: flavour.ReceiptType(),
		Kind: kind,
		User: &domain.ReceiptUser{
			Type:  domain.UserTypeDirectedIdentifier,
			Value: inst.DirectedID,
		},
		Product: &domain.ReceiptProduct{
			URL:       product.Origin(),
			StoreData: domain.EncodeStoreData(product.ID),
		},
		Verify:    verify,
		Reissue:   b.Links.ReissueURL(),
		Issuer:    b.Issuer,
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		Expiry:    now.Add(ttl).Unix(),
	}
}
