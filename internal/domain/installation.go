package domain

import "time"

// Installation is one user's install of one product. DirectedID is the only
// user identifier a receipt ever carries.
type Installation struct {
	ID          int64
	ProductID   int64
	UserID      int64
	DirectedID  string
	PremiumType PremiumType
	CreatedAt   time.Time
}
