package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional ledger operations. Other modules
// obtain one for their own transaction through NewTxRepository.
type TxRepository interface {
	LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error)
	AddQuantity(ctx context.Context, productID int64, delta int) (int, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

type txRepository struct {
	q db.Querier
}

// NewTxRepository binds ledger statements to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{q: tx}
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// History lists movements newest first.
func (r *Repository) History(ctx context.Context, filter HistoryFilter) ([]MovementView, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.product_id, p.name, m.quantity_delta, m.unit_cost, m.unit_sale_price,
       COALESCE(m.reference, ''), m.reference_id, COALESCE(m.note, ''), m.created_at
FROM stock_movements m
JOIN products p ON p.id = m.product_id
WHERE ($1::bigint IS NULL OR m.product_id = $1)
  AND m.created_at BETWEEN COALESCE($2, '-infinity'::timestamptz) AND COALESCE($3, 'infinity'::timestamptz)
ORDER BY m.created_at DESC, m.id DESC
LIMIT $4`, nullInt(filter.ProductID), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := []MovementView{}
	for rows.Next() {
		var v MovementView
		var ref string
		var refID *int64
		if err := rows.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Delta, &v.UnitCost, &v.UnitSalePrice, &ref, &refID, &v.Note, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Reference = Reference(ref)
		if refID != nil {
			v.ReferenceID = *refID
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *txRepository) LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error) {
	var p ProductSnapshot
	var status string
	err := r.q.QueryRow(ctx, `SELECT id, name, quantity, price, price_for_sale, status FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.PriceForSale, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductSnapshot{}, shared.NotFoundf("product %d", productID)
		}
		return ProductSnapshot{}, err
	}
	p.Retired = status == "retired"
	return p, nil
}

func (r *txRepository) AddQuantity(ctx context.Context, productID int64, delta int) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = NOW() WHERE id=$1 AND quantity + $2 >= 0 RETURNING quantity`, productID, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("inventory: product %d: %w", productID, shared.ErrInsufficientStock)
		}
		return 0, err
	}
	return qty, nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	if m.Delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRow(ctx, `INSERT INTO stock_movements (product_id, quantity_delta, unit_cost, unit_sale_price, reference, reference_id, note, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),$8) RETURNING id`,
		m.ProductID, m.Delta, m.UnitCost, m.UnitSalePrice, string(m.Reference), nullInt(m.ReferenceID), m.Note, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
