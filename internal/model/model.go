package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Sizes        []SizeStock
	ImageURL     string
	ImageAssetID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SizeStock is one entry of a product's stock ledger. Sizes are unique per
// product and quantity never goes below zero.
type SizeStock struct {
	Size     string
	Quantity int
}

// SizeQuantity returns the ledger entry for size, or false if the product
// does not carry that size.
func (p *Product) SizeQuantity(size string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Quantity, true
		}
	}
	return 0, false
}

type ShippingAddress struct {
	Street     string
	City       string
	PostalCode string
}

type PaymentRecord struct {
	Method         string
	TransactionRef string
	Status         PaymentStatus
}

type Order struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Status      OrderStatus
	Shipping    ShippingAddress
	Payment     PaymentRecord
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem carries the unit price captured at purchase time; later catalog
// price edits never touch it.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Size      string
	Quantity  int
	Price     decimal.Decimal
}

type OrderMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
