package usecase

import (
	"context"

	"receiptd/internal/domain"
)

type IssuedReceipt struct {
	Receipt string
	Claims  domain.ReceiptClaims
}

type IssueReceipt struct {
	Keys    KeyProvider
	Builder *ReceiptBuilder
	Signer  ReceiptSigner
}

// Execute refuses to issue anything while key material is broken, whichever
// signing strategy is configured.
func (uc *IssueReceipt) Execute(ctx context.Context, installationID int64, flavour string) (*IssuedReceipt, error) {
	if _, err := uc.Keys.Material(ctx); err != nil {
		return nil, err
	}
	claims, err := uc.Builder.Build(ctx, installationID, flavour)
	if err != nil {
		return nil, err
	}
	token, err := uc.Signer.Sign(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &IssuedReceipt{Receipt: token, Claims: claims}, nil
}
