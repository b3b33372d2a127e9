package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// ProductPricing is the input of the break-even indicator for one product.
type ProductPricing struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"product_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	VariableCost decimal.Decimal `json:"variable_cost"`
}

// StockSnapshot counts active products and their units on hand.
type StockSnapshot struct {
	Products int `json:"products"`
	OnHand   int `json:"on_hand"`
}

// PGRepository runs indicator aggregates on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// SalesTotal sums sale totals up to asOf.
func (r *PGRepository) SalesTotal(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE created_at <= $1`, asOf).Scan(&total)
	return total, err
}

// ExpenseTotals sums expenses per kind up to asOf.
func (r *PGRepository) ExpenseTotals(ctx context.Context, asOf time.Time) (ExpenseTotals, error) {
	var out ExpenseTotals
	err := r.pool.QueryRow(ctx, `SELECT
  COALESCE(SUM(e.amount) FILTER (WHERE t.kind = 'fixed'), 0),
  COALESCE(SUM(e.amount) FILTER (WHERE t.kind = 'variable'), 0),
  COALESCE(SUM(e.amount) FILTER (WHERE t.kind = 'investment'), 0)
FROM expenses e JOIN expense_types t ON t.id = e.expense_type_id
WHERE e.date <= $1::date`, asOf).Scan(&out.Fixed, &out.Variable, &out.Investment)
	return out, err
}

// ProductPricing loads the sale price and the variable costs booked against
// a product.
func (r *PGRepository) ProductPricing(ctx context.Context, productID int64, asOf time.Time) (ProductPricing, error) {
	p := ProductPricing{ProductID: productID}
	err := r.pool.QueryRow(ctx, `SELECT p.name, p.price_for_sale,
  COALESCE((SELECT SUM(e.amount) FROM expenses e JOIN expense_types t ON t.id = e.expense_type_id
            WHERE t.kind = 'variable' AND e.product_id = p.id AND e.date <= $2::date), 0)
FROM products p WHERE p.id = $1`, productID, asOf).Scan(&p.Name, &p.UnitPrice, &p.VariableCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductPricing{}, shared.NotFoundf("product %d", productID)
	}
	return p, err
}

// SalesWindow aggregates sales created in (from, to].
func (r *PGRepository) SalesWindow(ctx context.Context, from, to time.Time) (SalesWindow, error) {
	var w SalesWindow
	err := r.pool.QueryRow(ctx, `SELECT
  COALESCE(SUM(s.total_amount), 0),
  COUNT(*),
  COALESCE((SELECT SUM(l.quantity) FROM sale_lines l JOIN sales s2 ON s2.id = l.sale_id
            WHERE s2.created_at > $1 AND s2.created_at <= $2), 0)
FROM sales s WHERE s.created_at > $1 AND s.created_at <= $2`, from, to).Scan(&w.Total, &w.Count, &w.Quantity)
	return w, err
}

// StockSnapshot counts active products and their units.
func (r *PGRepository) StockSnapshot(ctx context.Context) (StockSnapshot, error) {
	var s StockSnapshot
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM products WHERE status = 'active'`).Scan(&s.Products, &s.OnHand)
	return s, err
}

// IdleProducts lists active products with neither a sale line nor a stock
// movement in (from, to].
func (r *PGRepository) IdleProducts(ctx context.Context, from, to time.Time) ([]IdleProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.quantity FROM products p
WHERE p.status = 'active'
  AND NOT EXISTS (SELECT 1 FROM sale_lines l JOIN sales s ON s.id = l.sale_id
                  WHERE l.product_id = p.id AND s.created_at > $1 AND s.created_at <= $2)
  AND NOT EXISTS (SELECT 1 FROM stock_movements m
                  WHERE m.product_id = p.id AND m.created_at > $1 AND m.created_at <= $2)
ORDER BY p.name, p.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []IdleProduct{}
	for rows.Next() {
		var p IdleProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SoldLines returns every sale line up to asOf in insertion order.
func (r *PGRepository) SoldLines(ctx context.Context, asOf time.Time) ([]SoldLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.product_id, p.name, p.price, l.quantity
FROM sale_lines l
JOIN sales s ON s.id = l.sale_id
JOIN products p ON p.id = l.product_id
WHERE s.created_at <= $1
ORDER BY l.id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SoldLine{}
	for rows.Next() {
		var l SoldLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.CostPrice, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AverageLineQuantity is the mean quantity of the sale lines up to asOf.
func (r *PGRepository) AverageLineQuantity(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(AVG(l.quantity), 0) FROM sale_lines l JOIN sales s ON s.id = l.sale_id WHERE s.created_at <= $1`, asOf).Scan(&avg)
	return avg, err
}

// LeadDays returns the days between order and delivery of every delivered
// supplier order up to asOf.
func (r *PGRepository) LeadDays(ctx context.Context, asOf time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT (delivery_date - order_date) FROM supplier_orders
WHERE delivery_date IS NOT NULL AND delivery_date <= $1::date ORDER BY id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MonthlyInvoicing sums revenue and cost per month of year, with the number
// of units sold in the year.
func (r *PGRepository) MonthlyInvoicing(ctx context.Context, year int) ([]MonthAmount, int, error) {
	rows, err := r.pool.Query(ctx, `SELECT EXTRACT(MONTH FROM s.created_at)::int, SUM(l.subtotal), SUM(p.price * l.quantity), SUM(l.quantity)
FROM sale_lines l
JOIN sales s ON s.id = l.sale_id
JOIN products p ON p.id = l.product_id
WHERE EXTRACT(YEAR FROM s.created_at)::int = $1
GROUP BY 1 ORDER BY 1`, year)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []MonthAmount{}
	quantity := 0
	for rows.Next() {
		var m MonthAmount
		var qty int
		if err := rows.Scan(&m.Month, &m.Revenue, &m.Cost, &qty); err != nil {
			return nil, 0, err
		}
		quantity += qty
		out = append(out, m)
	}
	return out, quantity, rows.Err()
}

// TopProducts ranks products by revenue.
func (r *PGRepository) TopProducts(ctx context.Context, limit int) ([]ProductRevenue, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.name, SUM(l.subtotal) AS total
FROM sale_lines l JOIN products p ON p.id = l.product_id
GROUP BY p.id, p.name
ORDER BY total DESC, p.id
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductRevenue{}
	for rows.Next() {
		var pr ProductRevenue
		if err := rows.Scan(&pr.Name, &pr.Total); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// ExtraIncomes sums incomes described as extra.
func (r *PGRepository) ExtraIncomes(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM incomes WHERE description = 'extra'`).Scan(&total)
	return total, err
}

// BestSeller finds the most sold product in the month of the latest sale.
// It returns nil when there are no sales.
func (r *PGRepository) BestSeller(ctx context.Context) (*BestSeller, error) {
	var b BestSeller
	err := r.pool.QueryRow(ctx, `WITH latest AS (
  SELECT EXTRACT(MONTH FROM created_at)::int AS m, EXTRACT(YEAR FROM created_at)::int AS y
  FROM sales ORDER BY created_at DESC, id DESC LIMIT 1
)
SELECT p.id, p.name, SUM(l.quantity)::int AS qty, latest.m, latest.y
FROM sale_lines l
JOIN sales s ON s.id = l.sale_id
JOIN products p ON p.id = l.product_id
JOIN latest ON EXTRACT(MONTH FROM s.created_at)::int = latest.m AND EXTRACT(YEAR FROM s.created_at)::int = latest.y
GROUP BY p.id, p.name, latest.m, latest.y
ORDER BY qty DESC, p.id
LIMIT 1`).Scan(&b.ProductID, &b.ProductName, &b.Quantity, &b.Month, &b.Year)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
