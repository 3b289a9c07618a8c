package model

import (
	"database/sql"
	"time"
)

// OrderStatus is the lifecycle state of a purchase.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Order is one purchase attempt. The Amount carries a randomized fractional
// offset on top of the package base price so that the transfer amount alone
// identifies the order in the external ledger.
type Order struct {
	OrderID        string      `gorm:"primaryKey;type:text" json:"order_id"`
	UserID         string      `gorm:"type:text;not null;index" json:"user_id"`
	PackageName    string      `gorm:"not null"             json:"package_name"`
	Amount         float64     `gorm:"not null"             json:"amount"`       // Unique price, immutable once assigned.
	QuotaAmount    int         `gorm:"not null"             json:"quota_amount"` // Relays credited on completion.
	Status         OrderStatus `gorm:"type:text;not null;index;default:pending" json:"status"`
	PaymentAddress string      `gorm:"not null"             json:"payment_address"`

	TxHash      sql.NullString `gorm:"index" json:"tx_hash"` // Matched ledger transaction, set once.
	Memo        sql.NullString `json:"memo"`                 // Best-effort transfer memo, auditing only.
	LastChecked sql.NullTime   `json:"last_checked"`         // Last reconciliation pass that saw this order.

	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime"       json:"updated_at"`
	CompletedAt sql.NullTime `gorm:"index"                json:"completed_at"`
}

// TableName - set the table name.
func (Order) TableName() string {
	return "orders"
}

// Expired reports whether a pending order has outlived the payment window.
func (o *Order) Expired(now time.Time, timeout time.Duration) bool {
	return o.Status == OrderPending && now.Sub(o.CreatedAt) > timeout
}
