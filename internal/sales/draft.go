package sales

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Draft is the validated and priced form of a sale request. Nothing has been
// written when a Draft exists.
type Draft struct {
	Lines     []DraftLine
	Total     decimal.Decimal
	Remaining map[int64]int
}

// DraftLine is a priced line bound to the locked product snapshot.
type DraftLine struct {
	Product  inventory.ProductSnapshot
	Quantity int
	Subtotal decimal.Decimal
}

// BuildDraft validates every line against the locked products and prices
// them. Quantities are accumulated per product so repeated lines cannot
// oversell together.
func BuildDraft(lines []LineRequest, products map[int64]inventory.ProductSnapshot) (Draft, error) {
	if len(lines) == 0 {
		return Draft{}, shared.Validationf("products is required")
	}
	draft := Draft{
		Lines:     make([]DraftLine, 0, len(lines)),
		Total:     decimal.Zero,
		Remaining: make(map[int64]int, len(products)),
	}
	requested := make(map[int64]int, len(products))
	for _, line := range lines {
		if line.Quantity < 1 {
			return Draft{}, shared.Validationf("quantity must be at least 1")
		}
		product, ok := products[line.ProductID]
		if !ok {
			return Draft{}, shared.NotFoundf("product %d", line.ProductID)
		}
		if product.Retired {
			return Draft{}, shared.Validationf("product %q is retired", product.Name)
		}
		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > product.Quantity {
			return Draft{}, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Quantity,
				Requested: requested[line.ProductID],
			}
		}
		subtotal := product.PriceForSale.Mul(decimal.NewFromInt(int64(line.Quantity)))
		draft.Lines = append(draft.Lines, DraftLine{Product: product, Quantity: line.Quantity, Subtotal: subtotal})
		draft.Total = draft.Total.Add(subtotal)
		draft.Remaining[product.ID] = product.Quantity - requested[line.ProductID]
	}
	return draft, nil
}

// productIDs returns the distinct product ids of the request in ascending
// order, the order rows are locked in.
func productIDs(lines []LineRequest) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	slices.Sort(ids)
	return ids
}
