package domain

import (
	"net/url"
	"strings"
	"time"
)

type PremiumType string

const (
	PremiumFree         PremiumType = "free"
	PremiumPremium      PremiumType = "premium"
	PremiumPremiumInApp PremiumType = "premium-inapp"
	PremiumFreeInApp    PremiumType = "free-inapp"
)

// RequiresPayment reports whether installing the product requires a purchase.
// In-app purchases on a free product do not gate the receipt.
func (p PremiumType) RequiresPayment() bool {
	switch p {
	case PremiumPremium, PremiumPremiumInApp:
		return true
	default:
		return false
	}
}

func (p PremiumType) Valid() bool {
	switch p {
	case PremiumFree, PremiumPremium, PremiumPremiumInApp, PremiumFreeInApp:
		return true
	default:
		return false
	}
}

type Product struct {
	ID          int64
	ManifestURL string
	AppOrigin   string
	PremiumType PremiumType
	CreatedAt   time.Time
}

// Origin is the value receipts carry in product.url. An explicit app origin
// wins over the one derived from the manifest URL.
func (p Product) Origin() string {
	if p.AppOrigin != "" {
		return p.AppOrigin
	}
	u, err := url.Parse(p.ManifestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(p.ManifestURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
