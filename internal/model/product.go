package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category values accepted for products.
const (
	CategoryMen         = "Men"
	CategoryWomen       = "Women"
	CategoryNewArrivals = "New Arrivals"
)

// Sizes is the fixed garment size vocabulary, in display order.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// DefaultSize is used when a product is added to a cart without a size.
const DefaultSize = "M"

// Product represents an apparel item in the catalogue.
type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category" db:"category"`
	Images      []string        `json:"images" db:"images"`
	Sizes       []string        `json:"sizes" db:"sizes"`
	Stock       int             `json:"stock" db:"stock"`
	Featured    bool            `json:"featured" db:"featured"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// ProductFilter narrows a catalogue listing. Zero values mean no filtering.
type ProductFilter struct {
	Category     string
	Search       string
	FeaturedOnly bool
}

// ProductRequest is the admin payload for creating or replacing a product.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
	Sizes       []string        `json:"sizes"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}

// FirstImage returns the primary image reference or an empty string.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// HasSize reports whether the product is offered in the given size.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// IsValidSize reports whether size belongs to the size vocabulary.
func IsValidSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether category is one of the known categories.
func IsValidCategory(category string) bool {
	switch category {
	case CategoryMen, CategoryWomen, CategoryNewArrivals:
		return true
	}
	return false
}
