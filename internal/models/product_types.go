package models

import (
	"time"
)

// Product is the model for the 'products' table.
// AverageRating and TotalReviews are aggregated from 'reviews' on every read.
type Product struct {
	ID            int64    `json:"id" db:"id"`
	Name          string   `json:"name" db:"name"`
	Slug          string   `json:"slug" db:"slug"`
	Description   string   `json:"description" db:"description"`
	Price         float64  `json:"price" db:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty" db:"original_price"`
	Stock         int      `json:"stock" db:"stock"`
	Images        []string `json:"images" db:"images"`
	Category      string   `json:"category" db:"category"`
	SKU           string   `json:"sku" db:"sku"`
	Featured      bool     `json:"featured" db:"featured"`
	IsNew         bool     `json:"isNew" db:"is_new"`
	Discount      int      `json:"discount" db:"discount"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Computed (not in table)
	AverageRating float64 `json:"averageRating" db:"-"`
	TotalReviews  int     `json:"totalReviews" db:"-"`
}

// ProductStock is the minimal payload served to the stock polling endpoint.
type ProductStock struct {
	ID    int64 `json:"id"`
	Stock int   `json:"stock"`
}

// Sort keys accepted by the catalog query.
const (
	SortByCreatedAt = "createdAt"
	SortByPrice     = "price"
	SortByName      = "name"
	SortByRating    = "rating"
	SortByStock     = "stock"
)

// ProductFilter holds the catalog query parameters. Nil pointers mean "no filter".
type ProductFilter struct {
	Category  string
	Search    string
	MinPrice  *float64
	MaxPrice  *float64
	InStock   *bool
	Featured  *bool
	IsNew     *bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Review is the model for the 'reviews' table.
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"productId" db:"product_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	UserName  string    `json:"userName,omitempty" db:"-"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
