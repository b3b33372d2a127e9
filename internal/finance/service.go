package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// RepositoryPort abstracts financial persistence.
type RepositoryPort interface {
	ListCategories(ctx context.Context) ([]Category, error)
	InsertCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListExpenseTypes(ctx context.Context) ([]ExpenseType, error)
	InsertExpenseType(ctx context.Context, t ExpenseType) (ExpenseType, error)
	DeleteExpenseType(ctx context.Context, id int64) error
	ListIncomes(ctx context.Context, term string, limit int) ([]Income, error)
	GetIncome(ctx context.Context, id int64) (Income, error)
	InsertIncome(ctx context.Context, in Income) (Income, error)
	DeleteIncome(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context, term string, limit int) ([]Expense, error)
	GetExpense(ctx context.Context, id int64) (Expense, error)
	InsertExpense(ctx context.Context, ex Expense) (Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// AuditPort records financial writes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates indicator caches; profit and ROI read expenses.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service manages incomes, expenses and their classifications.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListCategories returns all income categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory stores a category.
func (s *Service) CreateCategory(ctx context.Context, req CategoryRequest) (Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Category{}, shared.Validationf("name is required")
	}
	c, err := s.repo.InsertCategory(ctx, Category{Name: name, Description: strings.TrimSpace(req.Description)})
	if err != nil {
		return Category{}, fmt.Errorf("finance: insert category: %w", err)
	}
	s.record(ctx, "finance:category:create", "category", c.ID, false)
	return c, nil
}

// DeleteCategory removes a category that no income uses.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "finance:category:delete", "category", id, false)
	return nil
}

// ListExpenseTypes returns all expense types.
func (s *Service) ListExpenseTypes(ctx context.Context) ([]ExpenseType, error) {
	return s.repo.ListExpenseTypes(ctx)
}

// CreateExpenseType stores an expense type.
func (s *Service) CreateExpenseType(ctx context.Context, req ExpenseTypeRequest) (ExpenseType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ExpenseType{}, shared.Validationf("name is required")
	}
	if !req.Kind.Valid() {
		return ExpenseType{}, shared.Validationf("kind must be one of [fixed variable investment other]")
	}
	t, err := s.repo.InsertExpenseType(ctx, ExpenseType{Name: name, Description: strings.TrimSpace(req.Description), Kind: req.Kind})
	if err != nil {
		return ExpenseType{}, fmt.Errorf("finance: insert expense type: %w", err)
	}
	s.record(ctx, "finance:expense_type:create", "expense_type", t.ID, false)
	return t, nil
}

// DeleteExpenseType removes an expense type that no expense uses.
func (s *Service) DeleteExpenseType(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpenseType(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "finance:expense_type:delete", "expense_type", id, true)
	return nil
}

// ListIncomes returns incomes newest first.
func (s *Service) ListIncomes(ctx context.Context) ([]Income, error) {
	return s.repo.ListIncomes(ctx, "", 0)
}

// CreateIncome stores an income.
func (s *Service) CreateIncome(ctx context.Context, req IncomeRequest) (Income, error) {
	date, err := parseEntry(req.Name, req.Amount.IsPositive(), req.Date)
	if err != nil {
		return Income{}, err
	}
	in, err := s.repo.InsertIncome(ctx, Income{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount.Round(2),
		Date:        date,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return Income{}, fmt.Errorf("finance: insert income: %w", err)
	}
	s.record(ctx, "finance:income:create", "income", in.ID, true)
	return in, nil
}

// DeleteIncome removes an income.
func (s *Service) DeleteIncome(ctx context.Context, id int64) error {
	if err := s.repo.DeleteIncome(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "finance:income:delete", "income", id, true)
	return nil
}

// ListExpenses returns expenses newest first.
func (s *Service) ListExpenses(ctx context.Context) ([]Expense, error) {
	return s.repo.ListExpenses(ctx, "", 0)
}

// CreateExpense stores an expense.
func (s *Service) CreateExpense(ctx context.Context, req ExpenseRequest) (Expense, error) {
	date, err := parseEntry(req.Name, req.Amount.IsPositive(), req.Date)
	if err != nil {
		return Expense{}, err
	}
	ex, err := s.repo.InsertExpense(ctx, Expense{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount.Round(2),
		Date:          date,
		ExpenseTypeID: req.ExpenseTypeID,
		ProductID:     req.ProductID,
	})
	if err != nil {
		return Expense{}, fmt.Errorf("finance: insert expense: %w", err)
	}
	s.record(ctx, "finance:expense:create", "expense", ex.ID, true)
	return ex, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "finance:expense:delete", "expense", id, true)
	return nil
}

// ListEntries returns incomes and expenses merged by date descending.
func (s *Service) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.entries(ctx, "", 0)
}

// Search matches entry names and descriptions. An empty term returns no
// entries; at most SearchLimit entries are returned.
func (s *Service) Search(ctx context.Context, term string) ([]Entry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Entry{}, nil
	}
	entries, err := s.entries(ctx, term, SearchLimit)
	if err != nil {
		return nil, err
	}
	if len(entries) > SearchLimit {
		entries = entries[:SearchLimit]
	}
	return entries, nil
}

// Report builds the financial entries report, optionally for one entry.
func (s *Service) Report(ctx context.Context, filter ReportFilter) (Report, error) {
	switch filter.Kind {
	case "", EntryIncome, EntryExpense:
	default:
		return Report{}, shared.Validationf("kind must be one of [income expense]")
	}
	if filter.EntryID <= 0 {
		entries, err := s.ListEntries(ctx)
		if err != nil {
			return Report{}, err
		}
		return BuildReport(entries, filter, s.now()), nil
	}
	entry, err := s.findEntry(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return BuildReport([]Entry{entry}, filter, s.now()), nil
}

func (s *Service) findEntry(ctx context.Context, filter ReportFilter) (Entry, error) {
	if filter.Kind != EntryExpense {
		in, err := s.repo.GetIncome(ctx, filter.EntryID)
		if err == nil {
			return IncomeEntry(in), nil
		}
		if !errors.Is(err, shared.ErrNotFound) || filter.Kind == EntryIncome {
			return Entry{}, err
		}
	}
	ex, err := s.repo.GetExpense(ctx, filter.EntryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Entry{}, shared.NotFoundf("entry %d", filter.EntryID)
		}
		return Entry{}, err
	}
	return ExpenseEntry(ex), nil
}

func (s *Service) entries(ctx context.Context, term string, limit int) ([]Entry, error) {
	incomes, err := s.repo.ListIncomes(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("finance: list incomes: %w", err)
	}
	expenses, err := s.repo.ListExpenses(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("finance: list expenses: %w", err)
	}
	return MergeEntries(incomes, expenses), nil
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, affectsIndicators bool) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10)})
	}
	if affectsIndicators && s.cache != nil {
		s.bumpCache(ctx)
	}
}

func parseEntry(name string, positive bool, date string) (time.Time, error) {
	if strings.TrimSpace(name) == "" {
		return time.Time{}, shared.Validationf("name is required")
	}
	if !positive {
		return time.Time{}, shared.Validationf("amount must be greater than 0")
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, shared.Validationf("date must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump indicator cache", slog.Any("error", err))
	}
}
