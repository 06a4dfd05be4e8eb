package db

import "time"

type ProductModel struct {
	ID          int64     `gorm:"primaryKey"`
	ManifestURL string    `gorm:"not null"`
	AppOrigin   string
	PremiumType string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (ProductModel) TableName() string {
	return "products"
}

type InstallationModel struct {
	ID          int64     `gorm:"primaryKey"`
	ProductID   int64     `gorm:"uniqueIndex:installations_product_user;not null"`
	UserID      int64     `gorm:"uniqueIndex:installations_product_user;not null"`
	DirectedID  string    `gorm:"type:uuid;uniqueIndex;not null"`
	PremiumType string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (InstallationModel) TableName() string {
	return "installations"
}

type PurchaseModel struct {
	ID        int64     `gorm:"primaryKey"`
	ProductID int64     `gorm:"index:purchases_product_user;not null"`
	UserID    int64     `gorm:"index:purchases_product_user;not null"`
	Type      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (PurchaseModel) TableName() string {
	return "purchases"
}

type TransactionModel struct {
	ID        int64     `gorm:"primaryKey"`
	ProductID int64     `gorm:"index:transactions_product_user;not null"`
	UserID    int64     `gorm:"index:transactions_product_user;not null"`
	Type      string    `gorm:"not null"`
	Amount    *string
	Currency  string
	CreatedAt time.Time `gorm:"not null"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}
