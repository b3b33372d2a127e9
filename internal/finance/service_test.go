package finance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/shared"
)

type memoryRepo struct {
	categories   []Category
	expenseTypes []ExpenseType
	incomes      []Income
	expenses     []Expense
	nextID       int64
}

func (m *memoryRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	return m.categories, nil
}

func (m *memoryRepo) InsertCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = m.id()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memoryRepo) DeleteCategory(ctx context.Context, id int64) error {
	for _, in := range m.incomes {
		if in.CategoryID == id {
			return fmt.Errorf("%w: category %d is still referenced", shared.ErrConflict, id)
		}
	}
	for i, c := range m.categories {
		if c.ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return shared.NotFoundf("category %d", id)
}

func (m *memoryRepo) ListExpenseTypes(ctx context.Context) ([]ExpenseType, error) {
	return m.expenseTypes, nil
}

func (m *memoryRepo) InsertExpenseType(ctx context.Context, t ExpenseType) (ExpenseType, error) {
	t.ID = m.id()
	m.expenseTypes = append(m.expenseTypes, t)
	return t, nil
}

func (m *memoryRepo) DeleteExpenseType(ctx context.Context, id int64) error {
	return shared.NotFoundf("expense type %d", id)
}

func (m *memoryRepo) ListIncomes(ctx context.Context, term string, limit int) ([]Income, error) {
	var out []Income
	for _, in := range m.incomes {
		if term == "" || strings.Contains(in.Name, term) || strings.Contains(in.Description, term) {
			out = append(out, in)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) GetIncome(ctx context.Context, id int64) (Income, error) {
	for _, in := range m.incomes {
		if in.ID == id {
			return in, nil
		}
	}
	return Income{}, shared.NotFoundf("income %d", id)
}

func (m *memoryRepo) InsertIncome(ctx context.Context, in Income) (Income, error) {
	in.ID = m.id()
	for _, c := range m.categories {
		if c.ID == in.CategoryID {
			in.CategoryName = c.Name
		}
	}
	m.incomes = append(m.incomes, in)
	return in, nil
}

func (m *memoryRepo) DeleteIncome(ctx context.Context, id int64) error {
	return shared.NotFoundf("income %d", id)
}

func (m *memoryRepo) ListExpenses(ctx context.Context, term string, limit int) ([]Expense, error) {
	var out []Expense
	for _, ex := range m.expenses {
		if term == "" || strings.Contains(ex.Name, term) || strings.Contains(ex.Description, term) {
			out = append(out, ex)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) GetExpense(ctx context.Context, id int64) (Expense, error) {
	for _, ex := range m.expenses {
		if ex.ID == id {
			return ex, nil
		}
	}
	return Expense{}, shared.NotFoundf("expense %d", id)
}

func (m *memoryRepo) InsertExpense(ctx context.Context, ex Expense) (Expense, error) {
	ex.ID = m.id()
	m.expenses = append(m.expenses, ex)
	return ex, nil
}

func (m *memoryRepo) DeleteExpense(ctx context.Context, id int64) error {
	return shared.NotFoundf("expense %d", id)
}

func day(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

func TestMergeEntriesOrdersAndNegates(t *testing.T) {
	entries := MergeEntries(
		[]Income{
			{ID: 1, Name: "Venda balcão", Amount: decimal.NewFromInt(100), Date: day("2024-05-01"), CategoryName: "Vendas"},
			{ID: 2, Name: "Extra", Amount: decimal.NewFromInt(50), Date: day("2024-05-03")},
		},
		[]Expense{
			{ID: 1, Name: "Aluguel", Amount: decimal.NewFromInt(80), Date: day("2024-05-02"), ExpenseTypeName: "Fixa"},
			{ID: 2, Name: "Frete", Amount: decimal.NewFromInt(10), Date: day("2024-05-01"), ExpenseTypeName: "Variável"},
		},
	)
	require.Len(t, entries, 4)
	assert.Equal(t, "Extra", entries[0].Name)
	assert.Equal(t, "Sem categoria", entries[0].Category)
	assert.Equal(t, "Aluguel", entries[1].Name)
	assert.Equal(t, TypeExpense, entries[1].Type)
	assert.True(t, entries[1].Value.Equal(decimal.NewFromInt(-80)))
	assert.Equal(t, "Venda balcão", entries[2].Name)
	assert.Equal(t, "Frete", entries[3].Name)
}

func TestBuildReportTotals(t *testing.T) {
	entries := []Entry{
		{Type: TypeIncome, Value: decimal.RequireFromString("150.00")},
		{Type: TypeExpense, Value: decimal.RequireFromString("-40.50")},
		{Type: TypeExpense, Value: decimal.RequireFromString("-9.50")},
	}
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := BuildReport(entries, ReportFilter{}, now)
	assert.Equal(t, ReportName, report.Metadata.ReportName)
	assert.Equal(t, 3, report.Metadata.TotalRecords)
	assert.Equal(t, "150.00", report.Metadata.TotalIncomes.StringFixed(2))
	assert.Equal(t, "50.00", report.Metadata.TotalExpenses.StringFixed(2))
	assert.Equal(t, "100.00", report.Metadata.Balance.StringFixed(2))
	assert.Equal(t, "Todos", report.Metadata.Filters["entry_id"])
	assert.Equal(t, now, report.Metadata.GeneratedAt)
}

func seededService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, CategoryRequest{Name: "Vendas"})
	require.NoError(t, err)
	typ, err := svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "Aluguel", Kind: KindFixed})
	require.NoError(t, err)
	_, err = svc.CreateIncome(ctx, IncomeRequest{Name: "Venda", Amount: decimal.NewFromInt(200), Date: "2024-05-10", CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, ExpenseRequest{Name: "Aluguel maio", Amount: decimal.NewFromInt(120), Date: "2024-05-05", ExpenseTypeID: typ.ID})
	require.NoError(t, err)
	return svc, repo
}

func TestCreateIncomeValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateIncome(ctx, IncomeRequest{Name: "A", Amount: decimal.Zero, Date: "2024-05-01", CategoryID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateIncome(ctx, IncomeRequest{Name: "A", Amount: decimal.NewFromInt(1), Date: "05/01/2024", CategoryID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateExpenseType(ctx, ExpenseTypeRequest{Name: "X", Kind: "monthly"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSearchEntries(t *testing.T) {
	svc, repo := seededService(t)
	ctx := context.Background()

	empty, err := svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	found, err := svc.Search(ctx, "Aluguel")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeExpense, found[0].Type)

	for i := 0; i < 15; i++ {
		repo.incomes = append(repo.incomes, Income{ID: int64(100 + i), Name: "Venda extra", Amount: decimal.NewFromInt(1), Date: day("2024-06-01")})
	}
	many, err := svc.Search(ctx, "Venda")
	require.NoError(t, err)
	assert.Len(t, many, SearchLimit)
}

func TestReportSingleEntryPrefersIncome(t *testing.T) {
	svc, repo := seededService(t)
	ctx := context.Background()
	income := repo.incomes[0]
	expense := repo.expenses[0]

	report, err := svc.Report(ctx, ReportFilter{EntryID: income.ID})
	require.NoError(t, err)
	require.Len(t, report.Data, 1)
	assert.Equal(t, TypeIncome, report.Data[0].Type)

	report, err = svc.Report(ctx, ReportFilter{EntryID: expense.ID})
	require.NoError(t, err)
	require.Len(t, report.Data, 1)
	assert.Equal(t, "Aluguel maio", report.Data[0].Name)
	assert.Equal(t, "120.00", report.Metadata.TotalExpenses.StringFixed(2))

	_, err = svc.Report(ctx, ReportFilter{EntryID: expense.ID, Kind: EntryIncome})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Report(ctx, ReportFilter{EntryID: 999})
	require.ErrorIs(t, err, shared.ErrNotFound)

	all, err := svc.Report(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Metadata.TotalRecords)
	assert.Equal(t, "80.00", all.Metadata.Balance.StringFixed(2))
}

func TestHandlerDeleteReferencedCategory(t *testing.T) {
	svc, repo := seededService(t)
	r := chi.NewRouter()
	r.Route("/finance", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/finance/categories/%d", repo.categories[0].ID), nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/finance/incomes", strings.NewReader(`{"name":"Venda","amount":"10.00","date":"2024-05-01"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "category_id is required")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/finance/entries", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Receita")
}

type failingCache struct{ calls int }

func (c *failingCache) Bump(ctx context.Context) error {
	c.calls++
	return errors.New("redis: connection refused")
}

func TestCreateIncomeLogsCacheBumpFailure(t *testing.T) {
	var logs bytes.Buffer
	cache := &failingCache{}
	svc := NewService(&memoryRepo{}, nil, cache, slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, CategoryRequest{Name: "Vendas"})
	require.NoError(t, err)
	assert.Zero(t, cache.calls)

	in, err := svc.CreateIncome(ctx, IncomeRequest{Name: "Venda", Amount: decimal.NewFromInt(50), Date: "2024-05-10", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.NotZero(t, in.ID)
	assert.Equal(t, 1, cache.calls)
	assert.Contains(t, logs.String(), "bump indicator cache")
}
