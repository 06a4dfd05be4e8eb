package db

import (
	"context"
	"errors"

	"receiptd/internal/domain"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Product{
		ID:          model.ID,
		ManifestURL: model.ManifestURL,
		AppOrigin:   model.AppOrigin,
		PremiumType: domain.PremiumType(model.PremiumType),
		CreatedAt:   model.CreatedAt,
	}, nil
}
