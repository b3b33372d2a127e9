package finance

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ReportName is the title of the financial entries report.
const ReportName = "Relatório Financeiro"

// IncomeEntry converts an income to a listing row.
func IncomeEntry(in Income) Entry {
	category := in.CategoryName
	if category == "" {
		category = "Sem categoria"
	}
	return Entry{
		ID:          in.ID,
		Kind:        EntryIncome,
		Name:        in.Name,
		Description: in.Description,
		Value:       in.Amount,
		Date:        in.Date,
		Category:    category,
		Type:        TypeIncome,
	}
}

// ExpenseEntry converts an expense to a listing row with a negated value.
func ExpenseEntry(ex Expense) Entry {
	category := ex.ExpenseTypeName
	if category == "" {
		category = "Sem tipo"
	}
	return Entry{
		ID:          ex.ID,
		Kind:        EntryExpense,
		Name:        ex.Name,
		Description: ex.Description,
		Value:       ex.Amount.Neg(),
		Date:        ex.Date,
		Category:    category,
		Type:        TypeExpense,
	}
}

// MergeEntries combines incomes and expenses sorted by date descending.
// Entries on the same date keep incomes before expenses.
func MergeEntries(incomes []Income, expenses []Expense) []Entry {
	entries := make([]Entry, 0, len(incomes)+len(expenses))
	for _, in := range incomes {
		entries = append(entries, IncomeEntry(in))
	}
	for _, ex := range expenses {
		entries = append(entries, ExpenseEntry(ex))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

// BuildReport computes the report totals. Total expenses are reported as an
// absolute value; the balance is the signed sum.
func BuildReport(entries []Entry, filter ReportFilter, now time.Time) Report {
	meta := ReportMetadata{
		ReportName:    ReportName,
		GeneratedAt:   now,
		Filters:       map[string]string{"entry_id": "Todos"},
		TotalRecords:  len(entries),
		TotalIncomes:  decimal.Zero,
		TotalExpenses: decimal.Zero,
		Balance:       decimal.Zero,
	}
	if filter.EntryID > 0 {
		meta.Filters["entry_id"] = strconv.FormatInt(filter.EntryID, 10)
	}
	if filter.Kind != "" {
		meta.Filters["kind"] = string(filter.Kind)
	}
	for _, e := range entries {
		if e.Type == TypeIncome {
			meta.TotalIncomes = meta.TotalIncomes.Add(e.Value)
		} else {
			meta.TotalExpenses = meta.TotalExpenses.Add(e.Value)
		}
		meta.Balance = meta.Balance.Add(e.Value)
	}
	meta.TotalExpenses = meta.TotalExpenses.Abs()
	if entries == nil {
		entries = []Entry{}
	}
	return Report{Metadata: meta, Data: entries}
}
