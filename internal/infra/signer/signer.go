package signer

import (
	"context"
	"fmt"
	"net/http"

	"receiptd/internal/config"
	"receiptd/internal/domain"
	"receiptd/internal/infra/crypto"
)

type keyProvider interface {
	Material(ctx context.Context) (*domain.KeyMaterial, error)
}

// Signer turns receipt claims into an opaque token.
type Signer interface {
	Sign(ctx context.Context, claims domain.ReceiptClaims) (string, error)
	Mode() string
}

// New picks the signing strategy once, from SIGNING_MODE.
func New(cfg config.Config, keys keyProvider) (Signer, error) {
	switch cfg.SigningMode {
	case config.SigningModeLocal:
		return NewLocal(keys), nil
	case config.SigningModeRemote:
		remote, err := NewRemote(cfg.SigningServerURL, &http.Client{Timeout: cfg.SigningTimeout})
		if err != nil {
			return nil, err
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unsupported signing mode %q", cfg.SigningMode)
	}
}

// LocalSigner signs with the private key held by the key manager.
type LocalSigner struct {
	keys   keyProvider
	crypto *crypto.Service
}

func NewLocal(keys keyProvider) *LocalSigner {
	return &LocalSigner{keys: keys, crypto: &crypto.Service{}}
}

func (s *LocalSigner) Sign(ctx context.Context, claims domain.ReceiptClaims) (string, error) {
	material, err := s.keys.Material(ctx)
	if err != nil {
		return "", err
	}
	if material.Signing == nil {
		return "", fmt.Errorf("%w: key material has no signing key", domain.ErrKeyLoad)
	}
	if claims.Issuer == "" {
		claims.Issuer = material.Issuer
	}
	token, err := s.crypto.SignReceipt(claims, material.Signing)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	return token, nil
}

func (s *LocalSigner) Mode() string {
	return config.SigningModeLocal
}
