package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// ApplyEntry locks the product, raises its quantity and appends the matching
// movement. It runs inside a transaction owned by the caller so other modules
// can combine it with their own writes.
func ApplyEntry(ctx context.Context, tx TxRepository, in EntryInput, now time.Time) (Movement, error) {
	if in.ProductID <= 0 {
		return Movement{}, shared.Validationf("product is required")
	}
	if in.Quantity <= 0 {
		return Movement{}, fmt.Errorf("%w: %w", shared.ErrValidation, ErrInvalidQuantity)
	}
	product, err := tx.LockProduct(ctx, in.ProductID)
	if err != nil {
		return Movement{}, err
	}
	if product.Retired {
		return Movement{}, shared.Validationf("product %q is retired", product.Name)
	}
	if _, err := tx.AddQuantity(ctx, in.ProductID, in.Quantity); err != nil {
		return Movement{}, err
	}
	ref := in.Reference
	if ref == "" {
		ref = RefRestock
	}
	return tx.InsertMovement(ctx, Movement{
		ProductID:     in.ProductID,
		Delta:         in.Quantity,
		UnitCost:      product.Price,
		UnitSalePrice: product.PriceForSale,
		Reference:     ref,
		ReferenceID:   in.ReferenceID,
		Note:          in.Note,
		CreatedAt:     now,
	})
}

// ToHistoryRow derives the reporting row of a movement. Entries are valued at
// cost and shown as a negative total (cash out); exits are valued at the sale
// price and shown as a positive total (cash in).
func ToHistoryRow(v MovementView) HistoryRow {
	row := HistoryRow{
		ID:          v.ID,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		Quantity:    v.Delta,
		Date:        v.CreatedAt,
	}
	qty := decimal.NewFromInt(int64(abs(v.Delta)))
	if v.Delta > 0 {
		row.Type = MovementEntry
		row.UnitPrice = v.UnitCost
		row.TotalPrice = v.UnitCost.Mul(qty).Neg()
	} else {
		row.Type = MovementExit
		row.UnitPrice = v.UnitSalePrice
		row.TotalPrice = v.UnitSalePrice.Mul(qty)
	}
	return row
}

// BuildHistory converts ledger views, preserving their order.
func BuildHistory(views []MovementView) []HistoryRow {
	rows := make([]HistoryRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, ToHistoryRow(v))
	}
	return rows
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
