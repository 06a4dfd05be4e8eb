package domain

import "crypto/ed25519"

type SigningKey struct {
	KID string
	Key ed25519.PrivateKey
}

// KeyMaterial is loaded once per process and never mutated afterwards.
// Signing is nil when only verification keys were configured.
type KeyMaterial struct {
	Issuer       string
	Signing      *SigningKey
	Verification map[string]ed25519.PublicKey
}

func (m *KeyMaterial) PublicKey(kid string) (ed25519.PublicKey, bool) {
	if m == nil || kid == "" {
		return nil, false
	}
	key, ok := m.Verification[kid]
	return key, ok
}
