package analytics

import (
	"github.com/shopspring/decimal"
)

// MonthLabels are the dashboard month labels.
var MonthLabels = []string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// MonthAmount is the revenue and cost of the lines sold in one month.
type MonthAmount struct {
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
}

// Invoicing is the yearly invoicing card of the dashboard.
type Invoicing struct {
	Year           int               `json:"year"`
	Labels         []string          `json:"labels"`
	Values         []decimal.Decimal `json:"values"`
	Total          decimal.Decimal   `json:"total"`
	Cost           decimal.Decimal   `json:"cost"`
	Margin         decimal.Decimal   `json:"margem"`
	Quantity       int               `json:"quantidade"`
	Products       int               `json:"produtos"`
	Profit         decimal.Decimal   `json:"lucro_total"`
	ROI            decimal.Decimal   `json:"roi"`
	MonthlyProfits []decimal.Decimal `json:"lucros_mensais"`
}

// BuildInvoicing lays the monthly amounts over the twelve months of year.
// Margin is profit over revenue and ROI is profit over cost, both as
// percentages rounded to 2 places and 0 when their base is 0.
func BuildInvoicing(year int, months []MonthAmount, quantity, products int) Invoicing {
	inv := Invoicing{
		Year:           year,
		Labels:         MonthLabels,
		Values:         make([]decimal.Decimal, 12),
		MonthlyProfits: make([]decimal.Decimal, 12),
		Total:          decimal.Zero,
		Cost:           decimal.Zero,
		Margin:         decimal.Zero,
		ROI:            decimal.Zero,
		Quantity:       quantity,
		Products:       products,
	}
	for i := range inv.Values {
		inv.Values[i] = decimal.Zero
		inv.MonthlyProfits[i] = decimal.Zero
	}
	for _, m := range months {
		if m.Month < 1 || m.Month > 12 {
			continue
		}
		inv.Values[m.Month-1] = inv.Values[m.Month-1].Add(m.Revenue)
		inv.MonthlyProfits[m.Month-1] = inv.MonthlyProfits[m.Month-1].Add(m.Revenue.Sub(m.Cost))
		inv.Total = inv.Total.Add(m.Revenue)
		inv.Cost = inv.Cost.Add(m.Cost)
	}
	inv.Profit = inv.Total.Sub(inv.Cost)
	if inv.Total.IsPositive() {
		inv.Margin = inv.Profit.Div(inv.Total).Mul(hundred).Round(2)
	}
	if inv.Cost.IsPositive() {
		inv.ROI = inv.Profit.Div(inv.Cost).Mul(hundred).Round(2)
	}
	return inv
}

// ProductRevenue is the revenue of one product.
type ProductRevenue struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// TopSales is the top products chart.
type TopSales struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

// BuildTopSales splits the ranking into chart labels and values.
func BuildTopSales(rows []ProductRevenue) TopSales {
	out := TopSales{Labels: make([]string, 0, len(rows)), Values: make([]decimal.Decimal, 0, len(rows))}
	for _, r := range rows {
		out.Labels = append(out.Labels, r.Name)
		out.Values = append(out.Values, r.Total)
	}
	return out
}

// BestSeller is the most sold product in the month of the latest sale.
type BestSeller struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
}

// ExtraIncomes is the sum of incomes flagged as extra.
type ExtraIncomes struct {
	Total decimal.Decimal `json:"receitas_extras"`
}
