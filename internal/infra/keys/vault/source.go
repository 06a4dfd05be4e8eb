package vault

import (
	"context"
	"encoding/json"
	"errors"

	"receiptd/internal/infra/vaultclient"
)

type kvReader interface {
	ReadKV(ctx context.Context, path string) (json.RawMessage, error)
}

// Source reads key material from a Vault KV v2 document. The document either
// carries a JWK Set under "jwks" or is itself a stored key document.
type Source struct {
	client kvReader
	path   string
}

func NewSource(client *vaultclient.Client, path string) (*Source, error) {
	if client == nil {
		return nil, errors.New("vault client is required")
	}
	if path == "" {
		return nil, errors.New("vault path is required")
	}
	return &Source{client: client, path: path}, nil
}

func (s *Source) Load(ctx context.Context) ([]byte, error) {
	doc, err := s.client.ReadKV(ctx, s.path)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		JWKS json.RawMessage `json:"jwks"`
	}
	if err := json.Unmarshal(doc, &wrapped); err == nil && len(wrapped.JWKS) > 0 {
		// The JWK Set may be stored as a nested object or as a JSON string.
		var asString string
		if err := json.Unmarshal(wrapped.JWKS, &asString); err == nil {
			return []byte(asString), nil
		}
		return wrapped.JWKS, nil
	}
	return doc, nil
}

func (s *Source) String() string {
	return "vault:" + s.path
}
