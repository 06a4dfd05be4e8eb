package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"receiptd/internal/config"
	"receiptd/internal/infra/keys/awssm"
	"receiptd/internal/infra/keys/gcpsm"
	"receiptd/internal/infra/keys/soft"
	"receiptd/internal/infra/keys/vault"
	"receiptd/internal/infra/vaultclient"
)

// NewSourceFromConfig resolves RECEIPT_KEY_SOURCE into a Source:
//
//	file:///etc/receiptd/keys.jwks (or a bare path)
//	env:RECEIPT_SIGNING_KEY
//	vault://secret/data/receipts/signing
//	awssm://receipts/signing
//	gcpsm://projects/p/secrets/receipts[/versions/3]
func NewSourceFromConfig(ctx context.Context, cfg config.Config) (Source, error) {
	ref := strings.TrimSpace(cfg.ReceiptKeySource)
	if ref == "" {
		return nil, errors.New("RECEIPT_KEY_SOURCE is required")
	}
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		if name, found := strings.CutPrefix(ref, "env:"); found {
			return soft.NewEnvSource(name), nil
		}
		return soft.FileSource{Path: ref}, nil
	}
	switch scheme {
	case "file":
		return soft.FileSource{Path: rest}, nil
	case "vault":
		client := vaultclient.New(cfg.VaultAddr, cfg.VaultToken)
		return vault.NewSource(client, rest)
	case "awssm":
		return awssm.NewSource(awssm.Config{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.AWSSecretsManagerEndpoint,
		}, rest)
	case "gcpsm":
		var opts []option.ClientOption
		if cfg.GCPSecretManagerEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GCPSecretManagerEndpoint))
		}
		return gcpsm.NewSource(ctx, rest, opts...)
	default:
		return nil, fmt.Errorf("unsupported key source scheme %q", scheme)
	}
}
