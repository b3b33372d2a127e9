package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks whether a product can still be sold.
type Status string

const (
	// StatusActive products appear in sale search and accept movements.
	StatusActive Status = "active"
	// StatusRetired products are kept for history but can no longer be sold.
	StatusRetired Status = "retired"
)

// LowStockThreshold is the quantity under which a product raises an alert.
const LowStockThreshold = 5

// Product is the current snapshot of an item. Its quantity only changes
// together with a stock movement.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	PriceForSale decimal.Decimal `json:"price_for_sale"`
	Quantity     int             `json:"quantity"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name,omitempty"`
	Status       Status          `json:"status"`
	ImageKey     string          `json:"-"`
	ImageURL     string          `json:"image_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateProductRequest is the payload for a new product.
type CreateProductRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description" validate:"max=500"`
	Price        decimal.Decimal `json:"price"`
	PriceForSale decimal.Decimal `json:"price_for_sale"`
	Quantity     int             `json:"quantity" validate:"min=0"`
	SupplierID   *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
}

// UpdateProductRequest patches a product. Nil fields are left untouched.
type UpdateProductRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description  *string          `json:"description" validate:"omitempty,max=500"`
	Price        *decimal.Decimal `json:"price"`
	PriceForSale *decimal.Decimal `json:"price_for_sale"`
	Quantity     *int             `json:"quantity" validate:"omitempty,min=0"`
	SupplierID   *int64           `json:"supplier_id" validate:"omitempty,gt=0"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search  string
	Status  Status
	Page    int
	PerPage int
}

// SearchResult is the compact product shape used by pickers.
type SearchResult struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	PriceForSale decimal.Decimal `json:"price_for_sale"`
}

// StockAlert is raised for products under LowStockThreshold.
type StockAlert struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Message     string `json:"message"`
}

// CheckLowStock returns an alert when the product is below the threshold and
// nil otherwise.
func CheckLowStock(p Product) *StockAlert {
	if p.Quantity >= LowStockThreshold {
		return nil
	}
	return &StockAlert{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    p.Quantity,
		Message:     LowStockMessage(p.Quantity),
	}
}

// LowStockMessage formats the user facing alert text.
func LowStockMessage(quantity int) string {
	return fmt.Sprintf("Estoque baixo! Tem apenas %d restantes.", quantity)
}
