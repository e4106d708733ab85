package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusPlaced is the only status an order ever has; orders are immutable.
const OrderStatusPlaced = "placed"

// OrderItem is a line copied from the cart at checkout time.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36);not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);not null"`
	Title     string          `json:"title" gorm:"type:varchar(200)"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"` // Price at the time of order
	Quantity  int             `json:"quantity" gorm:"not null"`
}

// Order is an immutable snapshot of a checked-out cart.
type Order struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string          `json:"user_id" gorm:"index;uniqueIndex:idx_orders_user_idem;type:varchar(36);not null"`
	Items          []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Status         string          `json:"status" gorm:"type:varchar(20);not null"`
	PaymentOwner   string          `json:"payment_owner" gorm:"type:varchar(200)"`
	IBANLast4      string          `json:"iban_last4" gorm:"column:iban_last4;type:varchar(4)"`
	IdempotencyKey *string         `json:"-" gorm:"uniqueIndex:idx_orders_user_idem;type:varchar(100)"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentDetails are captured at checkout but never charged.
type PaymentDetails struct {
	IBAN   string `json:"iban" validate:"required"`
	CVC    string `json:"cvc" validate:"required"`
	Expiry string `json:"expiry" validate:"required"`
	Owner  string `json:"owner" validate:"required"`
}
