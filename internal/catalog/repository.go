package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes product writes together with the ledger so that a
// quantity change and its movement share one transaction.
type TxRepository interface {
	inventory.TxRepository
	Insert(ctx context.Context, p Product) (Product, error)
	GetForUpdate(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	SupplierExists(ctx context.Context, id int64) (bool, error)
}

type txRepository struct {
	inventory.TxRepository
	tx pgx.Tx
}

const productColumns = `p.id, p.name, COALESCE(p.description, ''), p.price, p.price_for_sale, p.quantity, p.supplier_id, COALESCE(s.name, ''), p.status, COALESCE(p.image_key, ''), p.created_at, p.updated_at`

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

// Get loads a product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, r.pool, id, false)
}

// List returns a page of products and the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where, args := listWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN suppliers s ON s.id = p.supplier_id`+where+`
ORDER BY p.name ASC, p.id ASC
LIMIT $`+itoa(len(args)-1)+` OFFSET $`+itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Search finds active products by name for the sale screen.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, quantity, price_for_sale FROM products
WHERE status = 'active' AND name ILIKE '%' || $1 || '%'
ORDER BY name ASC, id ASC LIMIT $2`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []SearchResult{}
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.ID, &res.Name, &res.Quantity, &res.PriceForSale); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// BelowThreshold lists active products whose quantity is under threshold.
func (r *Repository) BelowThreshold(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN suppliers s ON s.id = p.supplier_id
WHERE p.status = 'active' AND p.quantity < $1
ORDER BY p.quantity ASC, p.id ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SetImage stores the object key of the product image.
func (r *Repository) SetImage(ctx context.Context, id int64, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET image_key=$2, updated_at=NOW() WHERE id=$1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("product %d", id)
	}
	return nil
}

func (r *txRepository) Insert(ctx context.Context, p Product) (Product, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO products (name, description, price, price_for_sale, quantity, supplier_id, status, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Price, p.PriceForSale, p.Quantity, p.SupplierID, string(p.Status)).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, r.tx, id, true)
}

func (r *txRepository) Update(ctx context.Context, p Product) (Product, error) {
	err := r.tx.QueryRow(ctx, `UPDATE products SET name=$2, description=NULLIF($3, ''), price=$4, price_for_sale=$5, quantity=$6, supplier_id=$7, status=$8, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.PriceForSale, p.Quantity, p.SupplierID, string(p.Status)).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFoundf("product %d", p.ID)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) SupplierExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM suppliers WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func getProduct(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p LEFT JOIN suppliers s ON s.id = p.supplier_id WHERE p.id=$1`
	if forUpdate {
		query += ` FOR UPDATE OF p`
	}
	p, err := scanProduct(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFoundf("product %d", id)
		}
		return Product{}, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.PriceForSale, &p.Quantity, &p.SupplierID, &p.SupplierName, &status, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt)
	p.Status = Status(status)
	return p, err
}

func listWhere(filter ListFilter) (string, []any) {
	clauses := []string{}
	args := []any{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, term)
		clauses = append(clauses, `p.name ILIKE '%' || $`+itoa(len(args))+` || '%'`)
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, `p.status = $`+itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
