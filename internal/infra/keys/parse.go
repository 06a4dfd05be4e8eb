package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"receiptd/internal/domain"
)

// storedKey is the single-key document layout kept in secret stores.
type storedKey struct {
	Alg              string `json:"alg"`
	KID              string `json:"kid"`
	Issuer           string `json:"issuer"`
	PrivateKeyBase64 string `json:"private_key_base64"`
	PublicKeyBase64  string `json:"public_key_base64"`
}

// ParseMaterial turns raw key material into a KeyMaterial. Accepted forms: a
// JWK Set (private or public), a stored key document, PEM (PKCS#8 private or
// PKIX public), or a base64/hex Ed25519 seed or private key.
func ParseMaterial(raw []byte) (*domain.KeyMaterial, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return nil, errors.New("key material is empty")
	}
	switch {
	case data[0] == '{':
		return parseJSON(data)
	case bytes.HasPrefix(data, []byte("-----BEGIN")):
		return parsePEM(data)
	default:
		key, err := parseEncodedPrivateKey(string(data))
		if err != nil {
			return nil, err
		}
		return materialFromPrivateKey(key, "", ""), nil
	}
}

func parseJSON(data []byte) (*domain.KeyMaterial, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode key material: %w", err)
	}
	if _, ok := probe["keys"]; ok {
		set, err := keySetFromJSON(data)
		if err != nil {
			return nil, err
		}
		return materialFromKeySet(set)
	}
	var stored storedKey
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode stored key: %w", err)
	}
	if stored.Alg != "" && !strings.EqualFold(stored.Alg, "ed25519") && stored.Alg != "EdDSA" {
		return nil, fmt.Errorf("unsupported key algorithm %q", stored.Alg)
	}
	if stored.PrivateKeyBase64 == "" {
		if stored.PublicKeyBase64 == "" {
			return nil, errors.New("stored key has neither private nor public key")
		}
		pub, err := base64.StdEncoding.DecodeString(stored.PublicKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("decode public key: %w", err)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, errors.New("invalid ed25519 public key length")
		}
		kid := stored.KID
		if kid == "" {
			kid = keyIDFromPublicKey(pub)
		}
		return &domain.KeyMaterial{
			Issuer:       stored.Issuer,
			Verification: map[string]ed25519.PublicKey{kid: ed25519.PublicKey(pub)},
		}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored.PrivateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	return materialFromPrivateKey(key, stored.KID, stored.Issuer), nil
}

func materialFromKeySet(set *KeySet) (*domain.KeyMaterial, error) {
	material := &domain.KeyMaterial{
		Issuer:       set.Issuer,
		Verification: make(map[string]ed25519.PublicKey, len(set.Keys)),
	}
	for _, jwk := range set.Keys {
		switch key := jwk.Key.(type) {
		case ed25519.PrivateKey:
			if set.Issuer == "" {
				return nil, fmt.Errorf("private key %s in a set without issuer", jwk.KeyID)
			}
			if material.Signing != nil {
				return nil, fmt.Errorf("key set holds more than one private key (%s, %s)", material.Signing.KID, jwk.KeyID)
			}
			material.Signing = &domain.SigningKey{KID: jwk.KeyID, Key: key}
			material.Verification[jwk.KeyID] = key.Public().(ed25519.PublicKey)
		case ed25519.PublicKey:
			material.Verification[jwk.KeyID] = key
		default:
			return nil, fmt.Errorf("key %s is not an Ed25519 key", jwk.KeyID)
		}
	}
	return material, nil
}

func parsePEM(data []byte) (*domain.KeyMaterial, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid PEM block")
	}
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#8 key: %w", err)
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, errors.New("PEM private key is not Ed25519")
		}
		return materialFromPrivateKey(key, "", ""), nil
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX key: %w", err)
		}
		key, ok := parsed.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("PEM public key is not Ed25519")
		}
		return &domain.KeyMaterial{
			Verification: map[string]ed25519.PublicKey{keyIDFromPublicKey(key): key},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

func parseEncodedPrivateKey(value string) (ed25519.PrivateKey, error) {
	if raw, err := base64.StdEncoding.DecodeString(value); err == nil {
		if key, err := parsePrivateKey(raw); err == nil {
			return key, nil
		}
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, errors.New("key material is neither base64 nor hex")
	}
	return parsePrivateKey(raw)
}

func parsePrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, errors.New("invalid ed25519 private key length")
	}
}

func materialFromPrivateKey(key ed25519.PrivateKey, kid, issuer string) *domain.KeyMaterial {
	pub := key.Public().(ed25519.PublicKey)
	if kid == "" {
		kid = keyIDFromPublicKey(pub)
	}
	return &domain.KeyMaterial{
		Issuer:       issuer,
		Signing:      &domain.SigningKey{KID: kid, Key: key},
		Verification: map[string]ed25519.PublicKey{kid: pub},
	}
}

func keyIDFromPublicKey(pubKey ed25519.PublicKey) string {
	sum := sha256.Sum256(pubKey)
	return hex.EncodeToString(sum[:16])
}
