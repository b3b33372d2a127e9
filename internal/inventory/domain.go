package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Reference identifies what produced a stock movement.
type Reference string

const (
	// RefSale marks movements written by the sale transaction.
	RefSale Reference = "sale"
	// RefProductCreate marks the opening stock of a new product.
	RefProductCreate Reference = "product_create"
	// RefProductEdit marks quantity changes made through a product edit.
	RefProductEdit Reference = "product_edit"
	// RefSupplierOrder marks stock received from a supplier order.
	RefSupplierOrder Reference = "supplier_order"
	// RefRestock marks manual restock entries.
	RefRestock Reference = "restock"
)

// MovementType is the display direction of a movement.
type MovementType string

const (
	// MovementEntry is a positive delta.
	MovementEntry MovementType = "Entrada"
	// MovementExit is a negative delta.
	MovementExit MovementType = "Saída"
)

// Movement is one immutable row of the stock ledger. Prices are captured at
// the time of the movement so later price edits never rewrite history.
type Movement struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	Delta         int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"price"`
	UnitSalePrice decimal.Decimal `json:"price_for_sale"`
	Reference     Reference       `json:"reference,omitempty"`
	ReferenceID   int64           `json:"reference_id,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MovementView is a movement joined with its product name.
type MovementView struct {
	Movement
	ProductName string
}

// HistoryRow is the reporting shape of a movement.
type HistoryRow struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Type        MovementType    `json:"type"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Date        time.Time       `json:"date"`
}

// HistoryFilter narrows the history query.
type HistoryFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// EntryInput describes a positive stock entry such as a restock or a
// received supplier order.
type EntryInput struct {
	ProductID   int64     `json:"product_id" validate:"required,gt=0"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
	Reference   Reference `json:"-"`
	ReferenceID int64     `json:"-"`
	Note        string    `json:"note" validate:"max=255"`
}

// ProductSnapshot is the locked state of a product inside a ledger transaction.
type ProductSnapshot struct {
	ID           int64
	Name         string
	Quantity     int
	Price        decimal.Decimal
	PriceForSale decimal.Decimal
	Retired      bool
}

// ErrInvalidQuantity indicates a zero delta or a non-positive entry.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
