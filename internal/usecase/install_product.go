package usecase

import (
	"context"
	"errors"
	"fmt"

	"receiptd/internal/domain"
)

type InstallProductResult struct {
	Installation domain.Installation
	Receipt      string
}

// InstallProduct records an installation and hands back its default receipt.
type InstallProduct struct {
	Keys          KeyProvider
	Products      ProductRepository
	Installations InstallationRecorder
	Builder       *ReceiptBuilder
	Signer        ReceiptSigner
}

func (uc *InstallProduct) Execute(ctx context.Context, productID, userID int64) (*InstallProductResult, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	if _, err := uc.Keys.Material(ctx); err != nil {
		return nil, err
	}
	product, err := uc.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		return nil, err
	}
	var token string
	inst, err := uc.Installations.Record(ctx, *product, userID, func(inst domain.Installation) error {
		var err error
		token, err = uc.Signer.Sign(ctx, uc.Builder.ClaimsFor(inst, *product, domain.FlavourDefault))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &InstallProductResult{Installation: *inst, Receipt: token}, nil
}
