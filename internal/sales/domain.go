package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// LineRequest is one product line of a sale request.
type LineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// CreateSaleRequest is the payload of POST /sales.
type CreateSaleRequest struct {
	CustomerID *int64        `json:"customer_id"`
	Products   []LineRequest `json:"products" validate:"required,min=1,dive"`
}

// Sale is a persisted sale with its lines.
type Sale struct {
	ID          int64           `json:"sale_id"`
	CustomerID  *int64          `json:"customer_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []SaleLine      `json:"lines"`
}

// SaleLine is one sold product. Subtotal is the sale price at the time of the
// sale multiplied by the quantity.
type SaleLine struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// HistoryRow is one sold line in the sales history.
type HistoryRow struct {
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
	Date        time.Time       `json:"date"`
}

// InsufficientStockError reports a line whose cumulative quantity exceeds the
// stock on hand.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for product: %s. Available: %d", e.Name, e.Available)
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}
