package db

import (
	"context"
	"errors"
	"time"

	"receiptd/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstallationRepository struct {
	db *gorm.DB
}

func NewInstallationRepository(db *gorm.DB) *InstallationRepository {
	return &InstallationRepository{db: db}
}

func (r *InstallationRepository) GetByID(ctx context.Context, id int64) (*domain.Installation, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model InstallationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return installationFromModel(model), nil
}

func (r *InstallationRepository) GetByDirectedID(ctx context.Context, productID int64, directedID string) (*domain.Installation, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model InstallationModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND directed_id::text = ?", productID, directedID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return installationFromModel(model), nil
}

// Record returns the installation of product for user, creating it on first
// use. An existing row is never updated. Record runs in one transaction with
// confirm; when confirm fails a newly created row is rolled back.
func (r *InstallationRepository) Record(ctx context.Context, product domain.Product, userID int64, confirm func(domain.Installation) error) (*domain.Installation, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	directedID, err := newDirectedID()
	if err != nil {
		return nil, err
	}

	var inst *domain.Installation
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := InstallationModel{
			ProductID:   product.ID,
			UserID:      userID,
			DirectedID:  directedID,
			PremiumType: string(product.PremiumType),
			CreatedAt:   time.Now().UTC(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model).Error
		if err != nil {
			return err
		}

		var stored InstallationModel
		if err := tx.Where("product_id = ? AND user_id = ?", product.ID, userID).First(&stored).Error; err != nil {
			return err
		}
		inst = installationFromModel(stored)
		if confirm != nil {
			return confirm(*inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func installationFromModel(model InstallationModel) *domain.Installation {
	return &domain.Installation{
		ID:          model.ID,
		ProductID:   model.ProductID,
		UserID:      model.UserID,
		DirectedID:  model.DirectedID,
		PremiumType: domain.PremiumType(model.PremiumType),
		CreatedAt:   model.CreatedAt,
	}
}
