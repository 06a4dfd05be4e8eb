package crypto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"receiptd/internal/domain"
)

const tokenType = "JWT"

// Service signs receipt claims into compact JWS tokens and verifies them
// against loaded key material.
type Service struct{}

// SignReceipt encodes claims and signs them with the material's signing key.
// The token carries the key id in its protected header.
func (s *Service) SignReceipt(claims domain.ReceiptClaims, key *domain.SigningKey) (string, error) {
	if key == nil || len(key.Key) == 0 {
		return "", fmt.Errorf("%w: no signing key", domain.ErrKeyLoad)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	return s.SignPayload(payload, key)
}

func (s *Service) SignPayload(payload []byte, key *domain.SigningKey) (string, error) {
	opts := (&jose.SignerOptions{}).WithType(tokenType).WithHeader("kid", key.KID)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: key.Key}, opts)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}
	signed, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	token, err := signed.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return token, nil
}

// ParseReceipt checks the token signature against the key named by its kid
// header and decodes the claims. Errors wrap one of ErrTokenMalformed,
// ErrKeyUnknown, ErrSignatureInvalid or ErrClaimsInvalid.
func (s *Service) ParseReceipt(token string, material *domain.KeyMaterial) (domain.ReceiptClaims, error) {
	payload, err := s.VerifyPayload(token, material)
	if err != nil {
		return domain.ReceiptClaims{}, err
	}
	var claims domain.ReceiptClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.ReceiptClaims{}, fmt.Errorf("%w: %v", domain.ErrClaimsInvalid, err)
	}
	return claims, nil
}

func (s *Service) VerifyPayload(token string, material *domain.KeyMaterial) ([]byte, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	if len(jws.Signatures) != 1 {
		return nil, fmt.Errorf("%w: expected one signature", domain.ErrTokenMalformed)
	}
	kid := jws.Signatures[0].Protected.KeyID
	if kid == "" {
		return nil, fmt.Errorf("%w: kid header missing", domain.ErrKeyUnknown)
	}
	pub, ok := material.PublicKey(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyUnknown, kid)
	}
	payload, err := jws.Verify(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}
	return payload, nil
}

// KeyID returns the kid header of a token without verifying it.
func KeyID(token string) (string, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	if len(jws.Signatures) == 0 {
		return "", errors.Join(domain.ErrTokenMalformed, errors.New("no signatures"))
	}
	return jws.Signatures[0].Protected.KeyID, nil
}
