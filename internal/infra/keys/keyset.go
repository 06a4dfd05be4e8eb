package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

// KeySet is a JWK Set of Ed25519 keys. A set with an issuer holds exactly one
// private key; a set without one holds public verification keys.
type KeySet struct {
	Issuer string            `json:"issuer,omitempty"`
	Keys   []jose.JSONWebKey `json:"keys"`
}

// NewKeySetPair generates a fresh Ed25519 key and returns its public and
// private sets. The key id is a UUID v6 so sets sort by creation time.
func NewKeySetPair(issuer string) (public *KeySet, private *KeySet, err error) {
	if issuer == "" {
		return nil, nil, errors.New("issuer is required")
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	kid, err := uuid.NewV6()
	if err != nil {
		return nil, nil, fmt.Errorf("generate key id: %w", err)
	}
	public = &KeySet{Keys: []jose.JSONWebKey{signingJWK(pub, kid.String())}}
	private = &KeySet{Issuer: issuer, Keys: []jose.JSONWebKey{signingJWK(priv, kid.String())}}
	return public, private, nil
}

// PublicKeySet renders verification keys as a publishable JWK Set, ordered
// by key id.
func PublicKeySet(keys map[string]ed25519.PublicKey) *KeySet {
	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	set := &KeySet{Keys: make([]jose.JSONWebKey, 0, len(keys))}
	for _, kid := range kids {
		set.Keys = append(set.Keys, signingJWK(keys[kid], kid))
	}
	return set
}

func (k *KeySet) ToJSON() ([]byte, error) {
	return json.MarshalIndent(k, "", "  ")
}

func signingJWK(key any, kid string) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       key,
		KeyID:     kid,
		Algorithm: string(jose.EdDSA),
		Use:       "sig",
	}
}

func keySetFromJSON(data []byte) (*KeySet, error) {
	var set KeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, errors.New("key set has no keys")
	}
	if set.Issuer != "" && len(set.Keys) > 1 {
		return nil, fmt.Errorf("key set for issuer %s holds more than one key", set.Issuer)
	}
	for _, key := range set.Keys {
		if key.KeyID == "" {
			return nil, errors.New("key id is missing")
		}
		if key.Algorithm != string(jose.EdDSA) {
			return nil, fmt.Errorf("key %s has unsupported algorithm %q", key.KeyID, key.Algorithm)
		}
		if key.Use != "" && key.Use != "sig" {
			return nil, fmt.Errorf("key %s has unsupported use %q", key.KeyID, key.Use)
		}
	}
	return &set, nil
}
