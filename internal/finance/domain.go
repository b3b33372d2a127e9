package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseKind classifies an expense type for the profit indicators.
type ExpenseKind string

const (
	// KindFixed expenses are subtracted from gross profit to get net profit.
	KindFixed ExpenseKind = "fixed"
	// KindVariable expenses are subtracted from sales to get gross profit.
	KindVariable ExpenseKind = "variable"
	// KindInvestment expenses are the ROI denominator.
	KindInvestment ExpenseKind = "investment"
	// KindOther expenses only show up in the financial listings.
	KindOther ExpenseKind = "other"
)

// Valid reports whether k is a known kind.
func (k ExpenseKind) Valid() bool {
	switch k {
	case KindFixed, KindVariable, KindInvestment, KindOther:
		return true
	}
	return false
}

// EntryKind tells incomes and expenses apart in the combined listing.
type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// EntryType is the display label of an entry.
type EntryType string

const (
	TypeIncome  EntryType = "Receita"
	TypeExpense EntryType = "Despesa"
)

// DateLayout is the wire format of entry dates.
const DateLayout = "2006-01-02"

// SearchLimit caps the entry search used by the report picker.
const SearchLimit = 10

// Category groups incomes.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExpenseType groups expenses and carries their kind.
type ExpenseType struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Kind        ExpenseKind `json:"kind"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Income is money coming in.
type Income struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Expense is money going out. ProductID ties a variable cost to a product for
// the break-even indicator.
type Expense struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	ExpenseTypeID   int64           `json:"expense_type_id"`
	ExpenseTypeName string          `json:"expense_type_name"`
	Kind            ExpenseKind     `json:"kind"`
	ProductID       *int64          `json:"product_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Entry is one row of the combined financial listing. Expense values are
// negative.
type Entry struct {
	ID          int64           `json:"id"`
	Kind        EntryKind       `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Type        EntryType       `json:"type"`
}

// CategoryRequest creates a category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// ExpenseTypeRequest creates an expense type.
type ExpenseTypeRequest struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Description string      `json:"description" validate:"max=100"`
	Kind        ExpenseKind `json:"kind" validate:"required,oneof=fixed variable investment other"`
}

// IncomeRequest creates an income.
type IncomeRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
}

// ExpenseRequest creates an expense.
type ExpenseRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Description   string          `json:"description" validate:"max=1000"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date" validate:"required,datetime=2006-01-02"`
	ExpenseTypeID int64           `json:"expense_type_id" validate:"required,gt=0"`
	ProductID     *int64          `json:"product_id" validate:"omitempty,gt=0"`
}

// ReportFilter selects the entries of a financial report. With an EntryID and
// no Kind, incomes are looked up before expenses.
type ReportFilter struct {
	EntryID int64
	Kind    EntryKind
}

// ReportMetadata summarises a financial report.
type ReportMetadata struct {
	ReportName    string            `json:"report_name"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Filters       map[string]string `json:"filters"`
	TotalRecords  int               `json:"total_records"`
	TotalIncomes  decimal.Decimal   `json:"total_receitas"`
	TotalExpenses decimal.Decimal   `json:"total_despesas"`
	Balance       decimal.Decimal   `json:"saldo"`
}

// Report is the financial entries report.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Data     []Entry        `json:"data"`
}
