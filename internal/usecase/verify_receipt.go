package usecase

import (
	"context"
	"errors"
	"fmt"

	"receiptd/internal/domain"
)

// VerifyReceipt reconciles a presented receipt with installation and purchase
// records. Untrusted input only ever produces a status; returned errors are
// faults (broken keys, storage or signing failures).
type VerifyReceipt struct {
	Keys          KeyProvider
	Tokens        TokenParser
	Installations InstallationRepository
	Products      ProductRepository
	Purchases     PurchaseRepository
	Builder       *ReceiptBuilder
	Signer        ReceiptSigner
	Clock         Clock
}

// Execute verifies a receipt presented against productID.
func (uc *VerifyReceipt) Execute(ctx context.Context, productID int64, token string) (domain.VerifyResult, error) {
	return uc.verify(ctx, productID, token, false)
}

// ExecuteDiagnostic verifies an author or reviewer receipt. Purchases are not
// consulted.
func (uc *VerifyReceipt) ExecuteDiagnostic(ctx context.Context, productID int64, token string) (domain.VerifyResult, error) {
	return uc.verify(ctx, productID, token, true)
}

func (uc *VerifyReceipt) verify(ctx context.Context, productID int64, token string, diagnostic bool) (domain.VerifyResult, error) {
	material, err := uc.Keys.Material(ctx)
	if err != nil {
		return domain.VerifyResult{}, err
	}

	claims, err := uc.Tokens.ParseReceipt(token, material)
	if err != nil {
		return invalid(err.Error()), nil
	}
	if claims.User == nil || claims.Product == nil {
		return invalid("user or product claim missing"), nil
	}
	if claims.Expiry <= 0 {
		return invalid("exp claim missing"), nil
	}
	if claims.User.Type != domain.UserTypeDirectedIdentifier || claims.User.Value == "" {
		return invalid("user claim is not a directed identifier"), nil
	}
	flavour, err := claims.Flavour()
	if err != nil {
		return invalid(err.Error()), nil
	}

	storeID, err := domain.DecodeStoreData(claims.Product.StoreData)
	if err != nil {
		return invalid(err.Error()), nil
	}
	if storeID != productID {
		return invalid(fmt.Sprintf("storedata product %d does not match %d", storeID, productID)), nil
	}
	if diagnostic && !flavour.Diagnostic() {
		return invalid("not a diagnostic receipt"), nil
	}

	inst, err := uc.Installations.GetByDirectedID(ctx, productID, claims.User.Value)
	if errors.Is(err, domain.ErrNotFound) {
		return invalid("installation not found"), nil
	}
	if err != nil {
		return domain.VerifyResult{}, err
	}
	product, err := uc.Products.GetByID(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return invalid("product not found"), nil
	}
	if err != nil {
		return domain.VerifyResult{}, err
	}

	if !diagnostic && product.PremiumType.RequiresPayment() {
		event, err := uc.Purchases.LatestEvent(ctx, productID, inst.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("no purchase"), nil
		}
		if err != nil {
			return domain.VerifyResult{}, err
		}
		if event.Type.Revokes() {
			return domain.VerifyResult{Status: domain.VerifyStatusRefunded, Reason: string(event.Type)}, nil
		}
	}

	if claims.Expired(uc.Clock.now()) {
		fresh, err := uc.Signer.Sign(ctx, uc.Builder.ClaimsFor(*inst, *product, flavour))
		if err != nil {
			return domain.VerifyResult{}, err
		}
		return domain.VerifyResult{Status: domain.VerifyStatusExpired, Receipt: fresh, Reason: "expired"}, nil
	}
	return domain.VerifyResult{Status: domain.VerifyStatusOK}, nil
}

func invalid(reason string) domain.VerifyResult {
	return domain.VerifyResult{Status: domain.VerifyStatusInvalid, Reason: reason}
}
