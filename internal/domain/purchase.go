package domain

import "time"

type PurchaseEventType string

const (
	PurchaseEventPurchase   PurchaseEventType = "purchase"
	PurchaseEventRefund     PurchaseEventType = "refund"
	PurchaseEventChargeback PurchaseEventType = "chargeback"
)

// Revokes reports whether the event cancels an earlier purchase.
func (t PurchaseEventType) Revokes() bool {
	return t == PurchaseEventRefund || t == PurchaseEventChargeback
}

type PurchaseEventSource string

const (
	PurchaseSourcePurchase    PurchaseEventSource = "purchase"
	PurchaseSourceTransaction PurchaseEventSource = "transaction"
)

// PurchaseEvent is the most recent purchase-family record for a product and
// user, whichever table it came from.
type PurchaseEvent struct {
	ID        int64
	ProductID int64
	UserID    int64
	Type      PurchaseEventType
	Source    PurchaseEventSource
	CreatedAt time.Time
}
