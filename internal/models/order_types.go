package models

import (
	"time"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ShippingAddress is stored as a JSON column on 'orders'.
type ShippingAddress struct {
	FullName   string `json:"fullName" binding:"required"`
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the model for the 'orders' table.
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"`
	Status          string          `json:"status" db:"status"`
	IsPaid          bool            `json:"isPaid" db:"is_paid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	Subtotal        float64         `json:"subtotal" db:"subtotal"`
	Discount        float64         `json:"discount" db:"discount"`
	CouponCode      *string         `json:"couponCode,omitempty" db:"coupon_code"`
	TotalAmount     float64         `json:"totalAmount" db:"total_amount"`
	ShippingAddress ShippingAddress `json:"shippingAddress" db:"shipping_address"`
	PaymentMethod   *string         `json:"paymentMethod,omitempty" db:"payment_method"`
	PaymentID       *string         `json:"paymentId,omitempty" db:"payment_id"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`

	Items []OrderItem `json:"items" db:"-"`
}

// OrderItem is the model for the 'order_items' table. Name and Price are a
// snapshot taken at purchase time; ProductID becomes nil if the product is deleted.
type OrderItem struct {
	ID        int64   `json:"id" db:"id"`
	OrderID   int64   `json:"orderId" db:"order_id"`
	ProductID *int64  `json:"productId" db:"product_id"`
	Name      string  `json:"name" db:"name"`
	Quantity  int     `json:"quantity" db:"quantity"`
	Price     float64 `json:"price" db:"price"`
}

// OrderLine is one requested line of a new order.
type OrderLine struct {
	ProductID int64
	Quantity  int
	Price     float64 // advisory; the stored price wins
}

// OrderDraft is everything needed to place an order in one transaction.
type OrderDraft struct {
	UserID          int64
	UserEmail       string
	UserName        string
	Lines           []OrderLine
	CouponCode      string
	ShippingAddress ShippingAddress
	PaymentMethod   string
}
