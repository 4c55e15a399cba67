package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline/wardrobe-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Active bool      `json:"active"`
}

type SetUserActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// --- Product ---

type SizeStockRequest struct {
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

type CreateProductRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description" binding:"required"`
	Price       decimal.Decimal    `json:"price" binding:"required"`
	Category    string             `json:"category" binding:"required"`
	Sizes       []SizeStockRequest `json:"sizes" binding:"required,min=1,dive"`
}

type UpdateProductRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Price       *decimal.Decimal    `json:"price"`
	Category    *string             `json:"category"`
	Sizes       *[]SizeStockRequest `json:"sizes" binding:"omitempty,min=1,dive"`
}

type ListProductsRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
}

type SizeStockResponse struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type ProductResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	Category    string              `json:"category"`
	Sizes       []SizeStockResponse `json:"sizes"`
	ImageURL    string              `json:"image_url,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Order ---

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Size      string    `json:"size" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type ShippingAddressRequest struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

type PlaceOrderRequest struct {
	Items         []OrderLineRequest     `json:"items" binding:"required,min=1,dive"`
	Shipping      ShippingAddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod string                 `json:"payment_method" binding:"omitempty,oneof=card paypal"`
}

type ShippingAddressResponse struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type PaymentResponse struct {
	Method         string              `json:"method"`
	TransactionRef string              `json:"transaction_ref"`
	Status         model.PaymentStatus `json:"status"`
}

type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderResponse struct {
	ID          uuid.UUID               `json:"id"`
	UserID      uuid.UUID               `json:"user_id"`
	Status      model.OrderStatus       `json:"status"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Items       []OrderItemResponse     `json:"items"`
	Shipping    ShippingAddressResponse `json:"shipping_address"`
	Payment     PaymentResponse         `json:"payment"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
