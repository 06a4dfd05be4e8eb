package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"receiptd/internal/config"
	"receiptd/internal/domain"
	"receiptd/internal/infra/crypto"
	"receiptd/internal/infra/keys"
	"receiptd/internal/infra/signer"
)

type memoryInstallations struct {
	byID map[int64]domain.Installation
	err  error
}

func (r *memoryInstallations) GetByID(_ context.Context, id int64) (*domain.Installation, error) {
	if r.err != nil {
		return nil, r.err
	}
	inst, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &inst, nil
}

func (r *memoryInstallations) GetByDirectedID(_ context.Context, productID int64, directedID string) (*domain.Installation, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, inst := range r.byID {
		if inst.ProductID == productID && inst.DirectedID == directedID {
			copyInst := inst
			return &copyInst, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memoryProducts struct {
	byID map[int64]domain.Product
}

func (r *memoryProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	product, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &product, nil
}

type memoryPurchases struct {
	events []domain.PurchaseEvent
	err    error
}

func (r *memoryPurchases) LatestEvent(_ context.Context, productID, userID int64) (*domain.PurchaseEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	var latest *domain.PurchaseEvent
	for _, ev := range r.events {
		if ev.ProductID != productID || ev.UserID != userID {
			continue
		}
		copyEv := ev
		if latest == nil || ev.CreatedAt.After(latest.CreatedAt) {
			latest = &copyEv
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

type failingSigner struct {
	err error
}

func (s failingSigner) Sign(context.Context, domain.ReceiptClaims) (string, error) {
	return "", s.err
}

type rawSource []byte

func (s rawSource) Load(context.Context) ([]byte, error) { return s, nil }
func (s rawSource) String() string                       { return "raw" }

var fixtureNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	material      *domain.KeyMaterial
	keys          *keys.Manager
	installations *memoryInstallations
	products      *memoryProducts
	purchases     *memoryPurchases
	builder       *ReceiptBuilder
	signer        ReceiptSigner
	issue         *IssueReceipt
	verify        *VerifyReceipt
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	material := &domain.KeyMaterial{
		Issuer:       "marketplace.example",
		Signing:      &domain.SigningKey{KID: "kid-1", Key: priv},
		Verification: map[string]ed25519.PublicKey{"kid-1": pub},
	}
	f := &fixture{
		material: material,
		keys:     keys.NewStaticManager(material),
		now:      fixtureNow,
		installations: &memoryInstallations{byID: map[int64]domain.Installation{
			42: {ID: 42, ProductID: 100, UserID: 6, DirectedID: "0b0f3f4e-1c7e-4e0e-8a53-2f1c2b1a0042", PremiumType: domain.PremiumFree},
			43: {ID: 43, ProductID: 101, UserID: 7, DirectedID: "0b0f3f4e-1c7e-4e0e-8a53-2f1c2b1a0043", PremiumType: domain.PremiumPremium},
			44: {ID: 44, ProductID: 102, UserID: 8, DirectedID: "0b0f3f4e-1c7e-4e0e-8a53-2f1c2b1a0044", PremiumType: domain.PremiumPremium},
			45: {ID: 45, ProductID: 103, UserID: 9, DirectedID: "0b0f3f4e-1c7e-4e0e-8a53-2f1c2b1a0045", PremiumType: domain.PremiumPremiumInApp},
			46: {ID: 46, ProductID: 104, UserID: 10, DirectedID: "0b0f3f4e-1c7e-4e0e-8a53-2f1c2b1a0046", PremiumType: domain.PremiumFree},
		}},
		products: &memoryProducts{byID: map[int64]domain.Product{
			100: {ID: 100, ManifestURL: "https://free.example/manifest.webapp", PremiumType: domain.PremiumFree},
			101: {ID: 101, ManifestURL: "https://paid.example/manifest.webapp", PremiumType: domain.PremiumPremium},
			102: {ID: 102, ManifestURL: "https://refunded.example/manifest.webapp", PremiumType: domain.PremiumPremium},
			103: {ID: 103, ManifestURL: "https://inapp.example/manifest.webapp", AppOrigin: "app://inapp.example", PremiumType: domain.PremiumPremiumInApp},
			// Became premium after installation 46 was created.
			104: {ID: 104, ManifestURL: "https://upgraded.example/manifest.webapp", PremiumType: domain.PremiumPremium},
		}},
		purchases: &memoryPurchases{events: []domain.PurchaseEvent{
			{ID: 1, ProductID: 102, UserID: 8, Type: domain.PurchaseEventPurchase, Source: domain.PurchaseSourcePurchase, CreatedAt: fixtureNow.Add(-72 * time.Hour)},
			{ID: 2, ProductID: 102, UserID: 8, Type: domain.PurchaseEventRefund, Source: domain.PurchaseSourceTransaction, CreatedAt: fixtureNow.Add(-24 * time.Hour)},
			{ID: 3, ProductID: 103, UserID: 9, Type: domain.PurchaseEventPurchase, Source: domain.PurchaseSourcePurchase, CreatedAt: fixtureNow.Add(-48 * time.Hour)},
		}},
	}
	f.builder = &ReceiptBuilder{
		Installations: f.installations,
		Products:      f.products,
		Links:         config.Config{SiteURL: "https://market.example/"},
		TTL:           DefaultReceiptTTL,
		DiagnosticTTL: DiagnosticReceiptTTL,
		Clock:         func() time.Time { return f.now },
	}
	f.signer = signer.NewLocal(f.keys)
	f.wire()
	return f
}

// wire rebuilds the use cases after a test swaps a dependency.
func (f *fixture) wire() {
	f.issue = &IssueReceipt{Keys: f.keys, Builder: f.builder, Signer: f.signer}
	f.verify = &VerifyReceipt{
		Keys:          f.keys,
		Tokens:        &crypto.Service{},
		Installations: f.installations,
		Products:      f.products,
		Purchases:     f.purchases,
		Builder:       f.builder,
		Signer:        f.signer,
		Clock:         func() time.Time { return f.now },
	}
}

func (f *fixture) issueToken(t *testing.T, installationID int64, flavour string) string {
	t.Helper()
	issued, err := f.issue.Execute(context.Background(), installationID, flavour)
	if err != nil {
		t.Fatalf("issue receipt for installation %d: %v", installationID, err)
	}
	return issued.Receipt
}

func (f *fixture) signClaims(t *testing.T, claims domain.ReceiptClaims) string {
	t.Helper()
	token, err := (&crypto.Service{}).SignReceipt(claims, f.material.Signing)
	if err != nil {
		t.Fatalf("sign claims: %v", err)
	}
	return token
}
