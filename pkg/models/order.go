package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/bistro/pkg/apperr"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseOrderStatus accepts only the exact lowercase status names.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", apperr.Invalid("status", fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

// Terminal reports whether callers should treat s as the end of the lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerName    string          `gorm:"type:varchar(100);not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(30)" json:"customer_phone,omitempty"`
	CustomerAddress string          `gorm:"type:varchar(255)" json:"customer_address,omitempty"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index;check:status IN ('pending','confirmed','preparing','ready','completed','cancelled')" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line of an order. MenuItemName and Price are copies taken
// when the order was placed and are never rewritten afterwards.
type OrderItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID      string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Position     int             `gorm:"not null;default:0" json:"-"`
	MenuItemID   string          `gorm:"type:varchar(36);not null" json:"menu_item_id"`
	MenuItemName string          `gorm:"type:varchar(100);not null" json:"menu_item_name"`
	Quantity     int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is price × quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderPatch enumerates the order fields that may change after placement.
// A nil field is left untouched.
type OrderPatch struct {
	Status *OrderStatus `json:"status,omitempty"`
	Notes  *string      `json:"notes,omitempty"`
}

func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.Notes == nil
}
