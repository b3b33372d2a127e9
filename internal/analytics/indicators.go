package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// Window is the trailing period of the windowed indicators.
const Window = 30 * 24 * time.Hour

// WindowDays is Window expressed in days.
const WindowDays = 30

// GuardError is returned when an indicator's denominator is zero or negative.
// It matches shared.ErrDivisionGuard.
type GuardError struct {
	Message string
}

func (e *GuardError) Error() string { return e.Message }

// Unwrap lets errors.Is match shared.ErrDivisionGuard.
func (e *GuardError) Unwrap() error { return shared.ErrDivisionGuard }

var (
	// ErrNonPositiveMargin means the sale price does not cover the variable cost.
	ErrNonPositiveMargin = &GuardError{Message: "Erro: O preço de venda deve ser maior que o custo variável."}
	// ErrZeroInvestment means no investment expense was recorded.
	ErrZeroInvestment = &GuardError{Message: "Erro: O investimento não pode ser zero."}
	// ErrNoSales means the window holds no sale.
	ErrNoSales = &GuardError{Message: "Erro: Não há vendas registradas."}
)

var hundred = decimal.NewFromInt(100)

// ExpenseTotals sums expenses per kind.
type ExpenseTotals struct {
	Fixed      decimal.Decimal `json:"fixed"`
	Variable   decimal.Decimal `json:"variable"`
	Investment decimal.Decimal `json:"investment"`
}

// GrossProfit is sales minus variable costs.
func GrossProfit(sales decimal.Decimal, exp ExpenseTotals) decimal.Decimal {
	return sales.Sub(exp.Variable)
}

// NetProfit is gross profit minus fixed costs.
func NetProfit(sales decimal.Decimal, exp ExpenseTotals) decimal.Decimal {
	return GrossProfit(sales, exp).Sub(exp.Fixed)
}

// BreakEven is the number of units that pays the fixed costs.
func BreakEven(fixed, unitPrice, variableCost decimal.Decimal) (decimal.Decimal, error) {
	margin := unitPrice.Sub(variableCost)
	if !margin.IsPositive() {
		return decimal.Zero, ErrNonPositiveMargin
	}
	return fixed.Div(margin).Round(2), nil
}

// ROI is net profit over investment, as a percentage.
func ROI(netProfit, investment decimal.Decimal) (decimal.Decimal, error) {
	if investment.IsZero() {
		return decimal.Zero, ErrZeroInvestment
	}
	return netProfit.Div(investment).Mul(hundred).Round(2), nil
}

// SalesWindow aggregates the sales of a trailing window.
type SalesWindow struct {
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Quantity int             `json:"quantity"`
}

// AverageTicket is the mean sale total of the window.
func AverageTicket(w SalesWindow) (decimal.Decimal, error) {
	if w.Count == 0 {
		return decimal.Zero, ErrNoSales
	}
	return w.Total.Div(decimal.NewFromInt(int64(w.Count))).Round(2), nil
}

// StockTurnover is total sales over the product count, 0 without products.
func StockTurnover(sales decimal.Decimal, products int) decimal.Decimal {
	if products == 0 {
		return decimal.Zero
	}
	return sales.Div(decimal.NewFromInt(int64(products))).Round(2)
}

// StockCoverage is the number of days the stock on hand lasts at the window's
// daily sale rate, 0 when nothing sold.
func StockCoverage(onHand, soldInWindow int) decimal.Decimal {
	if soldInWindow == 0 {
		return decimal.Zero
	}
	daily := decimal.NewFromInt(int64(soldInWindow)).Div(decimal.NewFromInt(WindowDays))
	return decimal.NewFromInt(int64(onHand)).Div(daily).Round(2)
}

// ReorderPoint is the average line quantity times the average lead time.
func ReorderPoint(avgLineQuantity decimal.Decimal, leadDays []int) decimal.Decimal {
	lead := AverageLeadTime(leadDays)
	return avgLineQuantity.Mul(lead).Round(2)
}

// AverageLeadTime is the mean of leadDays, 0 when empty.
func AverageLeadTime(leadDays []int) decimal.Decimal {
	if len(leadDays) == 0 {
		return decimal.Zero
	}
	total := 0
	for _, d := range leadDays {
		total += d
	}
	return decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(leadDays))))
}

// SoldLine is one sale line with the product's cost price.
type SoldLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Quantity    int             `json:"quantity"`
}

// ABCClass is the Pareto class of a product.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// ABCItem is one classified product.
type ABCItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Total       decimal.Decimal `json:"total"`
	Percentage  decimal.Decimal `json:"percentage"`
	Accumulated decimal.Decimal `json:"accumulated"`
	Class       ABCClass        `json:"class"`
}

// ClassifyABC ranks products by cost price times quantity sold. Ties keep the
// order products were first encountered in lines. Classes are decided on the
// unrounded cumulative percentage; reported percentages are rounded to 2
// places. A zero grand total yields no items.
func ClassifyABC(lines []SoldLine) []ABCItem {
	index := make(map[int64]int)
	var items []ABCItem
	for _, l := range lines {
		value := l.CostPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		i, ok := index[l.ProductID]
		if !ok {
			index[l.ProductID] = len(items)
			items = append(items, ABCItem{ProductID: l.ProductID, ProductName: l.ProductName, Total: value})
			continue
		}
		items[i].Total = items[i].Total.Add(value)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Total.GreaterThan(items[j].Total)
	})
	grand := decimal.Zero
	for _, it := range items {
		grand = grand.Add(it.Total)
	}
	if !grand.IsPositive() {
		return []ABCItem{}
	}
	accumulated := decimal.Zero
	eighty := decimal.NewFromInt(80)
	ninetyFive := decimal.NewFromInt(95)
	for i := range items {
		pct := items[i].Total.Div(grand).Mul(hundred)
		accumulated = accumulated.Add(pct)
		switch {
		case accumulated.LessThanOrEqual(eighty):
			items[i].Class = ClassA
		case accumulated.LessThanOrEqual(ninetyFive):
			items[i].Class = ClassB
		default:
			items[i].Class = ClassC
		}
		items[i].Percentage = pct.Round(2)
		items[i].Accumulated = accumulated.Round(2)
	}
	return items
}

// IdleProduct is a product without activity in the window.
type IdleProduct struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// IdleReport lists idle products and their count.
type IdleReport struct {
	Products []IdleProduct `json:"idle_products"`
	Count    int           `json:"count"`
}

// WindowStart returns the start of the trailing window ending at asOf.
func WindowStart(asOf time.Time) time.Time {
	return asOf.Add(-Window)
}
