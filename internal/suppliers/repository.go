package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists suppliers and their addresses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional supplier writes.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Supplier, error)
	Insert(ctx context.Context, s Supplier) (Supplier, error)
	Update(ctx context.Context, s Supplier) (Supplier, error)
}

type txRepository struct {
	tx pgx.Tx
}

const supplierSelect = `SELECT s.id, s.name, COALESCE(s.cnpj, ''), COALESCE(s.email, ''), COALESCE(s.phone, ''), s.created_at, s.updated_at,
       a.id, COALESCE(a.street, ''), COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.postal_code, ''), COALESCE(a.district, '')
FROM suppliers s LEFT JOIN addresses a ON a.id = s.address_id`

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get loads one supplier.
func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	return getSupplier(ctx, r.pool, supplierSelect+` WHERE s.id=$1`, id)
}

// List returns all suppliers ordered by name.
func (r *Repository) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, supplierSelect+` ORDER BY s.name ASC, s.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Supplier, error) {
	return getSupplier(ctx, r.tx, supplierSelect+` WHERE s.id=$1 FOR UPDATE OF s`, id)
}

func (r *txRepository) Insert(ctx context.Context, s Supplier) (Supplier, error) {
	addressID, err := r.upsertAddress(ctx, nil, s.Address)
	if err != nil {
		return Supplier{}, err
	}
	err = r.tx.QueryRow(ctx, `INSERT INTO suppliers (name, cnpj, email, phone, address_id, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		s.Name, s.CNPJ, s.Email, s.Phone, addressID).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Supplier{}, shared.Validationf("supplier cnpj %q already registered", s.CNPJ)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *txRepository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	var current *int64
	if err := r.tx.QueryRow(ctx, `SELECT address_id FROM suppliers WHERE id=$1`, s.ID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.NotFoundf("supplier %d", s.ID)
		}
		return Supplier{}, err
	}
	addressID, err := r.upsertAddress(ctx, current, s.Address)
	if err != nil {
		return Supplier{}, err
	}
	err = r.tx.QueryRow(ctx, `UPDATE suppliers SET name=$2, cnpj=NULLIF($3, ''), email=NULLIF($4, ''), phone=NULLIF($5, ''), address_id=$6, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`, s.ID, s.Name, s.CNPJ, s.Email, s.Phone, addressID).Scan(&s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Supplier{}, shared.Validationf("supplier cnpj %q already registered", s.CNPJ)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *txRepository) upsertAddress(ctx context.Context, id *int64, a *Address) (*int64, error) {
	if a == nil || a.IsEmpty() {
		return id, nil
	}
	if id != nil {
		_, err := r.tx.Exec(ctx, `UPDATE addresses SET street=$2, city=$3, state=$4, postal_code=$5, district=$6, updated_at=NOW() WHERE id=$1`,
			*id, a.Street, a.City, a.State, a.PostalCode, a.District)
		return id, err
	}
	var newID int64
	err := r.tx.QueryRow(ctx, `INSERT INTO addresses (street, city, state, postal_code, district, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`, a.Street, a.City, a.State, a.PostalCode, a.District).Scan(&newID)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

func getSupplier(ctx context.Context, q db.Querier, query string, id int64) (Supplier, error) {
	s, err := scanSupplier(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.NotFoundf("supplier %d", id)
		}
		return Supplier{}, err
	}
	return s, nil
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	var addressID *int64
	var a Address
	if err := row.Scan(&s.ID, &s.Name, &s.CNPJ, &s.Email, &s.Phone, &s.CreatedAt, &s.UpdatedAt,
		&addressID, &a.Street, &a.City, &a.State, &a.PostalCode, &a.District); err != nil {
		return Supplier{}, err
	}
	if addressID != nil {
		s.Address = &a
	}
	return s, nil
}
