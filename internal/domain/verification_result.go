package domain

type VerifyStatus string

const (
	VerifyStatusOK       VerifyStatus = "ok"
	VerifyStatusInvalid  VerifyStatus = "invalid"
	VerifyStatusExpired  VerifyStatus = "expired"
	VerifyStatusRefunded VerifyStatus = "refunded"
)

// VerifyResult is the outcome of verifying a presented receipt. Receipt is
// set only for VerifyStatusExpired.
type VerifyResult struct {
	Status  VerifyStatus `json:"status"`
	Receipt string       `json:"receipt,omitempty"`
	// Reason is kept server-side for logs and metrics.
	Reason string `json:"-"`
}
