//go:build integration
// +build integration

package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"receiptd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestInstallationRepository_RecordIsGetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	resetDB(t, db)

	product := insertProduct(t, db, domain.PremiumFree)
	repo := NewInstallationRepository(db)

	first, err := repo.Record(context.Background(), product, 7, nil)
	if err != nil {
		t.Fatalf("record installation: %v", err)
	}
	if _, err := uuid.Parse(first.DirectedID); err != nil {
		t.Fatalf("directed id is not a uuid: %q", first.DirectedID)
	}
	if first.PremiumType != domain.PremiumFree {
		t.Fatalf("unexpected premium snapshot %q", first.PremiumType)
	}

	// The product changes classification; the snapshot and directed id must not.
	if err := db.Model(&ProductModel{}).Where("id = ?", product.ID).Update("premium_type", "premium").Error; err != nil {
		t.Fatalf("update product: %v", err)
	}
	product.PremiumType = domain.PremiumPremium
	second, err := repo.Record(context.Background(), product, 7, nil)
	if err != nil {
		t.Fatalf("record installation again: %v", err)
	}
	if second.ID != first.ID || second.DirectedID != first.DirectedID || second.PremiumType != domain.PremiumFree {
		t.Fatalf("existing installation changed: %+v vs %+v", second, first)
	}

	byID, err := repo.GetByID(context.Background(), first.ID)
	if err != nil || byID.DirectedID != first.DirectedID {
		t.Fatalf("get by id: %+v, %v", byID, err)
	}
	byDirected, err := repo.GetByDirectedID(context.Background(), product.ID, first.DirectedID)
	if err != nil || byDirected.ID != first.ID {
		t.Fatalf("get by directed id: %+v, %v", byDirected, err)
	}
	if _, err := repo.GetByDirectedID(context.Background(), product.ID+1, first.DirectedID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other product, got %v", err)
	}
	if _, err := repo.GetByDirectedID(context.Background(), product.ID, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for garbage directed id, got %v", err)
	}
}

func TestInstallationRepository_RecordRollsBackOnConfirmError(t *testing.T) {
	db := setupTestDB(t)
	resetDB(t, db)

	product := insertProduct(t, db, domain.PremiumFree)
	repo := NewInstallationRepository(db)
	signErr := errors.New("sign failed")

	var seen domain.Installation
	_, err := repo.Record(context.Background(), product, 9, func(inst domain.Installation) error {
		seen = inst
		return signErr
	})
	if !errors.Is(err, signErr) {
		t.Fatalf("expected confirm error, got %v", err)
	}
	if seen.ID == 0 || seen.DirectedID == "" {
		t.Fatalf("confirm did not receive the new installation: %+v", seen)
	}
	var count int64
	if err := db.Model(&InstallationModel{}).Where("product_id = ? AND user_id = ?", product.ID, 9).Count(&count).Error; err != nil {
		t.Fatalf("count installations: %v", err)
	}
	if count != 0 {
		t.Fatalf("installation kept after confirm failed: %d rows", count)
	}

	inst, err := repo.Record(context.Background(), product, 9, func(domain.Installation) error { return nil })
	if err != nil {
		t.Fatalf("record after rollback: %v", err)
	}
	if inst.DirectedID == seen.DirectedID {
		t.Fatalf("rolled back directed id was reused")
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	resetDB(t, db)

	product := insertProduct(t, db, domain.PremiumPremiumInApp)
	repo := NewProductRepository(db)

	got, err := repo.GetByID(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.PremiumType != domain.PremiumPremiumInApp || got.ManifestURL != product.ManifestURL {
		t.Fatalf("unexpected product: %+v", got)
	}
	if _, err := repo.GetByID(context.Background(), product.ID+100); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPurchaseRepository_LatestEventAcrossTables(t *testing.T) {
	db := setupTestDB(t)
	resetDB(t, db)

	product := insertProduct(t, db, domain.PremiumPremium)
	repo := NewPurchaseRepository(db)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.LatestEvent(context.Background(), product.ID, 8); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found without records, got %v", err)
	}

	insertPurchase(t, db, product.ID, 8, "purchase", base)
	latest, err := repo.LatestEvent(context.Background(), product.ID, 8)
	if err != nil {
		t.Fatalf("latest event: %v", err)
	}
	if latest.Type != domain.PurchaseEventPurchase || latest.Source != domain.PurchaseSourcePurchase {
		t.Fatalf("unexpected latest event: %+v", latest)
	}

	insertTransaction(t, db, product.ID, 8, "refund", base.Add(time.Hour))
	latest, err = repo.LatestEvent(context.Background(), product.ID, 8)
	if err != nil {
		t.Fatalf("latest event: %v", err)
	}
	if latest.Type != domain.PurchaseEventRefund || latest.Source != domain.PurchaseSourceTransaction {
		t.Fatalf("expected refund transaction, got %+v", latest)
	}

	// Same timestamp as the refund: the revoking event still wins.
	insertPurchase(t, db, product.ID, 8, "purchase", base.Add(time.Hour))
	latest, err = repo.LatestEvent(context.Background(), product.ID, 8)
	if err != nil {
		t.Fatalf("latest event: %v", err)
	}
	if !latest.Type.Revokes() {
		t.Fatalf("expected revoking event on tie, got %+v", latest)
	}

	insertPurchase(t, db, product.ID, 8, "purchase", base.Add(2*time.Hour))
	insertTransaction(t, db, product.ID, 8, "payout", base.Add(3*time.Hour))
	latest, err = repo.LatestEvent(context.Background(), product.ID, 8)
	if err != nil {
		t.Fatalf("latest event: %v", err)
	}
	if latest.Type != domain.PurchaseEventPurchase {
		t.Fatalf("expected repurchase to win and payout to be ignored, got %+v", latest)
	}

	if _, err := repo.LatestEvent(context.Background(), product.ID, 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}

func TestRepositoriesWithoutDB(t *testing.T) {
	if _, err := NewProductRepository(nil).GetByID(context.Background(), 1); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	if _, err := NewPurchaseRepository(nil).LatestEvent(context.Background(), 1, 1); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	lockTestDB(t, db)
	applyMigrations(t, db)
	return db
}

func lockTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		t.Fatalf("open db conn: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_lock(987654322)"); err != nil {
		_ = conn.Close()
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(987654322)")
		_ = conn.Close()
	})
}

func applyMigrations(t *testing.T, db *gorm.DB) {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		sqlBytes, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read migration %s: %v", name, err)
		}
		if err := db.Exec(string(sqlBytes)).Error; err != nil {
			t.Fatalf("apply migration %s: %v", name, err)
		}
	}
}

func resetDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec(`TRUNCATE installations, purchases, transactions, products RESTART IDENTITY CASCADE`).Error; err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func insertProduct(t *testing.T, db *gorm.DB, premium domain.PremiumType) domain.Product {
	t.Helper()
	model := ProductModel{
		ManifestURL: "https://app.example/manifest.webapp",
		PremiumType: string(premium),
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.Create(&model).Error; err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return domain.Product{ID: model.ID, ManifestURL: model.ManifestURL, PremiumType: premium}
}

func insertPurchase(t *testing.T, db *gorm.DB, productID, userID int64, typ string, at time.Time) {
	t.Helper()
	if err := db.Create(&PurchaseModel{ProductID: productID, UserID: userID, Type: typ, CreatedAt: at}).Error; err != nil {
		t.Fatalf("insert purchase: %v", err)
	}
}

func insertTransaction(t *testing.T, db *gorm.DB, productID, userID int64, typ string, at time.Time) {
	t.Helper()
	if err := db.Create(&TransactionModel{ProductID: productID, UserID: userID, Type: typ, CreatedAt: at}).Error; err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}
