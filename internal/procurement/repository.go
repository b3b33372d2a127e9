package procurement

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists supplier orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes order writes together with the stock ledger so a
// delivery and its stock entry commit atomically.
type TxRepository interface {
	inventory.TxRepository
	SupplierExists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, o SupplierOrder) (SupplierOrder, error)
	GetForUpdate(ctx context.Context, id int64) (SupplierOrder, error)
	MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) error
}

type txRepository struct {
	inventory.TxRepository
	tx pgx.Tx
}

const orderSelect = `SELECT o.id, o.supplier_id, s.name, o.product_id, p.name, o.quantity, o.order_date, o.delivery_date, o.status, o.created_at
FROM supplier_orders o
JOIN suppliers s ON s.id = o.supplier_id
JOIN products p ON p.id = o.product_id`

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

// Get loads one order.
func (r *Repository) Get(ctx context.Context, id int64) (SupplierOrder, error) {
	return getOrder(ctx, r.pool, orderSelect+` WHERE o.id=$1`, id)
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]SupplierOrder, error) {
	var clauses []string
	var args []any
	if filter.SupplierID > 0 {
		args = append(args, filter.SupplierID)
		clauses = append(clauses, "o.supplier_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		clauses = append(clauses, "o.product_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, "o.status = $"+strconv.Itoa(len(args)))
	}
	query := orderSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY o.order_date DESC, o.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []SupplierOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *txRepository) SupplierExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) Insert(ctx context.Context, o SupplierOrder) (SupplierOrder, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO supplier_orders (supplier_id, product_id, quantity, order_date, status, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`, o.SupplierID, o.ProductID, o.Quantity, o.OrderDate, string(OrderPending)).Scan(&id)
	if err != nil {
		return SupplierOrder{}, err
	}
	return getOrder(ctx, r.tx, orderSelect+` WHERE o.id=$1`, id)
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (SupplierOrder, error) {
	return getOrder(ctx, r.tx, orderSelect+` WHERE o.id=$1 FOR UPDATE OF o`, id)
}

func (r *txRepository) MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE supplier_orders SET delivery_date=$2, status=$3 WHERE id=$1`, id, deliveredAt, string(OrderDelivered))
	return err
}

func getOrder(ctx context.Context, q db.Querier, query string, id int64) (SupplierOrder, error) {
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SupplierOrder{}, shared.NotFoundf("supplier order %d", id)
		}
		return SupplierOrder{}, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (SupplierOrder, error) {
	var o SupplierOrder
	var status string
	if err := row.Scan(&o.ID, &o.SupplierID, &o.SupplierName, &o.ProductID, &o.ProductName, &o.Quantity, &o.OrderDate, &o.DeliveryDate, &status, &o.CreatedAt); err != nil {
		return SupplierOrder{}, err
	}
	o.Status = OrderStatus(status)
	return o, nil
}
