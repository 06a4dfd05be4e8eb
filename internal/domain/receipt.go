package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type Flavour string

const (
	FlavourDefault  Flavour = "default"
	FlavourAuthor   Flavour = "author"
	FlavourReviewer Flavour = "reviewer"
)

// ParseFlavour accepts the three known flavours; an empty string means default.
func ParseFlavour(value string) (Flavour, error) {
	switch Flavour(value) {
	case "", FlavourDefault:
		return FlavourDefault, nil
	case FlavourAuthor, FlavourReviewer:
		return Flavour(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFlavour, value)
	}
}

// Diagnostic reports whether the flavour is a short-lived author or reviewer receipt.
func (f Flavour) Diagnostic() bool {
	return f == FlavourAuthor || f == FlavourReviewer
}

// ReceiptType is the typ claim of a receipt of this flavour.
func (f Flavour) ReceiptType() string {
	switch f {
	case FlavourAuthor:
		return "developer-receipt"
	case FlavourReviewer:
		return "reviewer-receipt"
	default:
		return "purchase-receipt"
	}
}

const UserTypeDirectedIdentifier = "directed-identifier"

type ReceiptUser struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ReceiptProduct struct {
	URL       string `json:"url"`
	StoreData string `json:"storedata"`
}

// ReceiptClaims is the signed payload of a receipt. User and Product are
// pointers so a verifier can tell an absent claim from an empty one.
type ReceiptClaims struct {
	Type      string          `json:"typ"`
	Kind      string          `json:"kind,omitempty"`
	User      *ReceiptUser    `json:"user,omitempty"`
	Product   *ReceiptProduct `json:"product,omitempty"`
	Verify    string          `json:"verify"`
	Reissue   string          `json:"reissue"`
	Issuer    string          `json:"iss"`
	IssuedAt  int64           `json:"iat"`
	NotBefore int64           `json:"nbf"`
	Expiry    int64           `json:"exp"`
}

// Flavour derives the receipt flavour from the kind claim. Unknown kinds are
// reported as an error so a verifier can treat them as invalid.
func (c ReceiptClaims) Flavour() (Flavour, error) {
	return ParseFlavour(c.Kind)
}

func (c ReceiptClaims) ExpiresAt() time.Time {
	return time.Unix(c.Expiry, 0).UTC()
}

func (c ReceiptClaims) Expired(now time.Time) bool {
	return c.Expiry < now.Unix()
}

// EncodeStoreData renders the product.storedata claim for a product id.
func EncodeStoreData(productID int64) string {
	values := url.Values{}
	values.Set("id", strconv.FormatInt(productID, 10))
	return values.Encode()
}

// DecodeStoreData extracts the product id from a product.storedata claim.
func DecodeStoreData(storeData string) (int64, error) {
	values, err := url.ParseQuery(storeData)
	if err != nil {
		return 0, fmt.Errorf("%w: storedata: %v", ErrClaimsInvalid, err)
	}
	raw := values.Get("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: storedata missing id", ErrClaimsInvalid)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: storedata id %q", ErrClaimsInvalid, raw)
	}
	return id, nil
}
