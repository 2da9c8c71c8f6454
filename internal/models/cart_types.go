package models

import "time"

// CartItem is the model for the 'cart_items' table, joined with the live
// product fields the cart view needs.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table)
	Name     string   `json:"name" db:"-"`
	SKU      string   `json:"sku" db:"-"`
	Price    float64  `json:"price" db:"-"`
	Stock    int      `json:"stock" db:"-"`
	Category string   `json:"category" db:"-"`
	Images   []string `json:"images" db:"-"`
}

// LineTotal is price times quantity at the current product price.
func (ci CartItem) LineTotal() float64 {
	return ci.Price * float64(ci.Quantity)
}

// WishlistItem is the model for the 'wishlist_items' table.
type WishlistItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`

	Product *Product `json:"product,omitempty" db:"-"`
}
