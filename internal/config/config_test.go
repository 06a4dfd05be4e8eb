package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.HTTPAddr)
	}
	if cfg.SigningMode != SigningModeLocal {
		t.Fatalf("unexpected signing mode: %q", cfg.SigningMode)
	}
	if cfg.ReceiptDiagnosticTTL != 24*time.Hour {
		t.Fatalf("unexpected diagnostic ttl: %s", cfg.ReceiptDiagnosticTTL)
	}
	if cfg.ReceiptTTL <= cfg.ReceiptDiagnosticTTL {
		t.Fatalf("expected default ttl to outlive diagnostic ttl, got %s", cfg.ReceiptTTL)
	}
}

func TestFromEnvRemoteRequiresServer(t *testing.T) {
	t.Setenv("SIGNING_MODE", SigningModeRemote)
	t.Setenv("SIGNING_SERVER_URL", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for remote mode without server url")
	}
}

func TestFromEnvRemoteRequiresIssuer(t *testing.T) {
	t.Setenv("SIGNING_MODE", SigningModeRemote)
	t.Setenv("SIGNING_SERVER_URL", "https://signer.example/sign")
	t.Setenv("RECEIPT_ISSUER", "")
	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "RECEIPT_ISSUER") {
		t.Fatalf("expected RECEIPT_ISSUER error, got %v", err)
	}

	t.Setenv("RECEIPT_ISSUER", "marketplace.example")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("remote mode with issuer: %v", err)
	}
	if cfg.ReceiptIssuer != "marketplace.example" {
		t.Fatalf("unexpected issuer %q", cfg.ReceiptIssuer)
	}
}

func TestFromEnvLocalIssuerOptional(t *testing.T) {
	t.Setenv("SIGNING_MODE", SigningModeLocal)
	t.Setenv("RECEIPT_ISSUER", "")
	if _, err := FromEnv(); err != nil {
		t.Fatalf("local mode takes the issuer from the key set: %v", err)
	}
}

func TestFromEnvRejectsUnknownMode(t *testing.T) {
	t.Setenv("SIGNING_MODE", "hsm")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown signing mode")
	}
}

func TestLinks(t *testing.T) {
	cfg := Config{SiteURL: "https://market.example/"}
	if got := cfg.VerifyURL(102); got != "https://market.example/v1/receipts/verify/102" {
		t.Fatalf("unexpected verify url: %s", got)
	}
	if got := cfg.DiagnosticVerifyURL(7); got != "https://market.example/v1/receipts/diagnostic/verify/7" {
		t.Fatalf("unexpected diagnostic url: %s", got)
	}
	if got := cfg.ReissueURL(); got != "https://market.example/receipts/reissue" {
		t.Fatalf("unexpected reissue url: %s", got)
	}
	cfg.ReceiptReissueURL = "https://reissue.example/r"
	if got := cfg.ReissueURL(); got != "https://reissue.example/r" {
		t.Fatalf("unexpected reissue override: %s", got)
	}
}
