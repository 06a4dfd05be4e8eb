package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	SigningModeLocal  = "local"
	SigningModeRemote = "remote"
)

type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`
	SiteURL     string `envconfig:"SITE_URL" default:"http://localhost:8080"`

	ReceiptIssuer        string        `envconfig:"RECEIPT_ISSUER"`
	ReceiptTTL           time.Duration `envconfig:"RECEIPT_TTL" default:"48h"`
	ReceiptDiagnosticTTL time.Duration `envconfig:"RECEIPT_DIAGNOSTIC_TTL" default:"24h"`
	ReceiptReissueURL    string        `envconfig:"RECEIPT_REISSUE_URL"`
	ReceiptKeySource     string        `envconfig:"RECEIPT_KEY_SOURCE"`

	SigningMode      string        `envconfig:"SIGNING_MODE" default:"local"`
	SigningServerURL string        `envconfig:"SIGNING_SERVER_URL"`
	SigningTimeout   time.Duration `envconfig:"SIGNING_TIMEOUT" default:"5s"`

	VaultAddr  string `envconfig:"VAULT_ADDR"`
	VaultToken string `envconfig:"VAULT_TOKEN"`

	AWSRegion                 string `envconfig:"AWS_REGION"`
	AWSSecretsManagerEndpoint string `envconfig:"AWS_SECRETS_MANAGER_ENDPOINT"`
	GCPSecretManagerEndpoint  string `envconfig:"GCP_SECRET_MANAGER_ENDPOINT"`

	RateLimitRequests      int  `envconfig:"RATE_LIMIT_REQUESTS" default:"0"`
	RateLimitWindowSeconds int  `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	RateLimitMaxKeys       int  `envconfig:"RATE_LIMIT_MAX_KEYS" default:"10000"`
	RateLimitFailClosed    bool `envconfig:"RATE_LIMIT_FAIL_CLOSED" default:"false"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// FromEnv reads the configuration from unprefixed environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.SigningMode {
	case SigningModeLocal:
	case SigningModeRemote:
		if c.SigningServerURL == "" {
			return fmt.Errorf("SIGNING_SERVER_URL is required when SIGNING_MODE=%s", SigningModeRemote)
		}
		// The remote signer signs claims as given; only local signing can
		// fall back to the issuer stored with the key.
		if c.ReceiptIssuer == "" {
			return fmt.Errorf("RECEIPT_ISSUER is required when SIGNING_MODE=%s", SigningModeRemote)
		}
	default:
		return fmt.Errorf("unsupported SIGNING_MODE %q", c.SigningMode)
	}
	if c.ReceiptTTL <= 0 || c.ReceiptDiagnosticTTL <= 0 {
		return fmt.Errorf("receipt TTLs must be positive")
	}
	if c.SigningTimeout <= 0 {
		return fmt.Errorf("SIGNING_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) siteURL() string {
	return strings.TrimRight(c.SiteURL, "/")
}

// VerifyURL is the entitlement verification link embedded in default receipts.
func (c Config) VerifyURL(productID int64) string {
	return c.siteURL() + "/v1/receipts/verify/" + strconv.FormatInt(productID, 10)
}

// DiagnosticVerifyURL is the privileged link embedded in author and reviewer receipts.
func (c Config) DiagnosticVerifyURL(productID int64) string {
	return c.siteURL() + "/v1/receipts/diagnostic/verify/" + strconv.FormatInt(productID, 10)
}

func (c Config) ReissueURL() string {
	if c.ReceiptReissueURL != "" {
		return c.ReceiptReissueURL
	}
	return c.siteURL() + "/receipts/reissue"
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
