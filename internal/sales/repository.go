package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sales repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of the sale transaction. The embedded
// ledger repository shares the same pgx transaction.
type TxRepository interface {
	inventory.TxRepository
	LockProducts(ctx context.Context, ids []int64) (map[int64]inventory.ProductSnapshot, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	InsertLine(ctx context.Context, line SaleLine) (SaleLine, error)
	UpdateTotal(ctx context.Context, sale Sale) error
	CompleteIdempotency(ctx context.Context, key, module, ref string) error
}

type txRepo struct {
	inventory.TxRepository
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

// Get loads a sale and its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, total_amount, created_at FROM sales WHERE id=$1`, id).
		Scan(&sale.ID, &sale.CustomerID, &sale.TotalAmount, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.NotFoundf("sale %d", id)
		}
		return Sale{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.sale_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
FROM sale_lines l JOIN products p ON p.id = l.product_id
WHERE l.sale_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	sale.Lines = []SaleLine{}
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return Sale{}, err
		}
		sale.Lines = append(sale.Lines, l)
	}
	return sale, rows.Err()
}

// History lists sold lines newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, l.product_id, p.name, l.quantity, l.subtotal, s.created_at
FROM sale_lines l
JOIN sales s ON s.id = l.sale_id
JOIN products p ON p.id = l.product_id
ORDER BY s.created_at DESC, l.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []HistoryRow{}
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.SaleID, &h.ProductID, &h.ProductName, &h.Quantity, &h.Total, &h.Date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *txRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]inventory.ProductSnapshot, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, quantity, price, price_for_sale, status
FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make(map[int64]inventory.ProductSnapshot, len(ids))
	for rows.Next() {
		var p inventory.ProductSnapshot
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.PriceForSale, &status); err != nil {
			return nil, err
		}
		p.Retired = status == "retired"
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (customer_id, total_amount, created_at) VALUES ($1, $2, $3) RETURNING id`,
		sale.CustomerID, sale.TotalAmount, sale.CreatedAt).Scan(&sale.ID)
	return sale, err
}

func (t *txRepo) InsertLine(ctx context.Context, line SaleLine) (SaleLine, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, subtotal) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		line.SaleID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal).Scan(&line.ID)
	return line, err
}

func (t *txRepo) UpdateTotal(ctx context.Context, sale Sale) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET total_amount=$2 WHERE id=$1`, sale.ID, sale.TotalAmount)
	return err
}

func (t *txRepo) CompleteIdempotency(ctx context.Context, key, module, ref string) error {
	return shared.CompleteIdempotencyKey(ctx, t.tx, key, module, ref)
}
