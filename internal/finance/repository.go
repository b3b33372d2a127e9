package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository persists financial entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const incomeSelect = `SELECT i.id, i.name, COALESCE(i.description, ''), i.amount, i.date, i.category_id, COALESCE(c.name, ''), i.created_at
FROM incomes i LEFT JOIN categories c ON c.id = i.category_id`

const expenseSelect = `SELECT e.id, e.name, COALESCE(e.description, ''), e.amount, e.date, e.expense_type_id, COALESCE(t.name, ''), COALESCE(t.kind, 'other'), e.product_id, e.created_at
FROM expenses e LEFT JOIN expense_types t ON t.id = e.expense_type_id`

// ListCategories returns categories by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, ''), created_at FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCategory stores a category.
func (r *Repository) InsertCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description, created_at) VALUES ($1, NULLIF($2, ''), NOW()) RETURNING id, created_at`,
		c.Name, c.Description).Scan(&c.ID, &c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return Category{}, shared.Validationf("category %q already exists", c.Name)
	}
	return c, err
}

// DeleteCategory removes an unused category.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM categories WHERE id=$1`, "category", id)
}

// ListExpenseTypes returns expense types by name.
func (r *Repository) ListExpenseTypes(ctx context.Context) ([]ExpenseType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, ''), kind, created_at FROM expense_types ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ExpenseType{}
	for rows.Next() {
		var t ExpenseType
		var kind string
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &kind, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = ExpenseKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertExpenseType stores an expense type.
func (r *Repository) InsertExpenseType(ctx context.Context, t ExpenseType) (ExpenseType, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO expense_types (name, description, kind, created_at) VALUES ($1, NULLIF($2, ''), $3, NOW()) RETURNING id, created_at`,
		t.Name, t.Description, string(t.Kind)).Scan(&t.ID, &t.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ExpenseType{}, shared.Validationf("expense type %q already exists", t.Name)
	}
	return t, err
}

// DeleteExpenseType removes an unused expense type.
func (r *Repository) DeleteExpenseType(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM expense_types WHERE id=$1`, "expense type", id)
}

// ListIncomes returns incomes newest first. An empty term matches everything;
// limit <= 0 means no limit.
func (r *Repository) ListIncomes(ctx context.Context, term string, limit int) ([]Income, error) {
	rows, err := r.pool.Query(ctx, incomeSelect+`
WHERE $1 = '' OR i.name ILIKE '%' || $1 || '%' OR i.description ILIKE '%' || $1 || '%'
ORDER BY i.date DESC, i.id DESC
LIMIT NULLIF($2, 0)`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// GetIncome loads one income.
func (r *Repository) GetIncome(ctx context.Context, id int64) (Income, error) {
	in, err := scanIncome(r.pool.QueryRow(ctx, incomeSelect+` WHERE i.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Income{}, shared.NotFoundf("income %d", id)
	}
	return in, err
}

// InsertIncome stores an income.
func (r *Repository) InsertIncome(ctx context.Context, in Income) (Income, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO incomes (name, description, amount, date, category_id, created_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, NOW()) RETURNING id`, in.Name, in.Description, in.Amount, in.Date, in.CategoryID).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Income{}, shared.Validationf("category %d does not exist", in.CategoryID)
		}
		return Income{}, err
	}
	return r.GetIncome(ctx, id)
}

// DeleteIncome removes an income.
func (r *Repository) DeleteIncome(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM incomes WHERE id=$1`, "income", id)
}

// ListExpenses returns expenses newest first with the same term and limit
// rules as ListIncomes.
func (r *Repository) ListExpenses(ctx context.Context, term string, limit int) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, expenseSelect+`
WHERE $1 = '' OR e.name ILIKE '%' || $1 || '%' OR e.description ILIKE '%' || $1 || '%'
ORDER BY e.date DESC, e.id DESC
LIMIT NULLIF($2, 0)`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Expense{}
	for rows.Next() {
		ex, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// GetExpense loads one expense.
func (r *Repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	ex, err := scanExpense(r.pool.QueryRow(ctx, expenseSelect+` WHERE e.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, shared.NotFoundf("expense %d", id)
	}
	return ex, err
}

// InsertExpense stores an expense.
func (r *Repository) InsertExpense(ctx context.Context, ex Expense) (Expense, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (name, description, amount, date, expense_type_id, product_id, created_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NOW()) RETURNING id`,
		ex.Name, ex.Description, ex.Amount, ex.Date, ex.ExpenseTypeID, ex.ProductID).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Expense{}, shared.Validationf("expense type or product does not exist")
		}
		return Expense{}, err
	}
	return r.GetExpense(ctx, id)
}

// DeleteExpense removes an expense.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM expenses WHERE id=$1`, "expense", id)
}

func (r *Repository) deleteRow(ctx context.Context, query, entity string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s %d is still referenced", shared.ErrConflict, entity, id)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("%s %d", entity, id)
	}
	return nil
}

func scanIncome(row pgx.Row) (Income, error) {
	var in Income
	err := row.Scan(&in.ID, &in.Name, &in.Description, &in.Amount, &in.Date, &in.CategoryID, &in.CategoryName, &in.CreatedAt)
	return in, err
}

func scanExpense(row pgx.Row) (Expense, error) {
	var ex Expense
	var kind string
	err := row.Scan(&ex.ID, &ex.Name, &ex.Description, &ex.Amount, &ex.Date, &ex.ExpenseTypeID, &ex.ExpenseTypeName, &kind, &ex.ProductID, &ex.CreatedAt)
	ex.Kind = ExpenseKind(kind)
	return ex, err
}
