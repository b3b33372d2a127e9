package export

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/finance"
	"github.com/stockdesk/stockdesk/internal/inventory"
)

// Report names and file name prefixes.
const (
	ProductHistoryName   = "Histórico de Produtos"
	ProductHistoryFile   = "historico-produtos"
	FinancialEntriesFile = "lancamentos-financeiros"
	allFilter            = "Todos"
)

// HistoryRecord is the exported shape of a stock movement.
type HistoryRecord struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Date        string          `json:"date"`
}

// HistoryMetadata describes a product history export.
type HistoryMetadata struct {
	ReportName   string            `json:"report_name"`
	GeneratedAt  string            `json:"generated_at"`
	Filters      map[string]string `json:"filters"`
	TotalRecords int               `json:"total_records"`
}

// ProductHistoryDocument builds the stock history export. productID is 0 for
// every product.
func ProductHistoryDocument(rows []inventory.HistoryRow, productID int64, now time.Time) Document {
	filter := allFilter
	if productID > 0 {
		filter = strconv.FormatInt(productID, 10)
	}
	records := make([]HistoryRecord, 0, len(rows))
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		rec := HistoryRecord{
			ID:          r.ID,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			Price:       r.UnitPrice,
			Type:        string(r.Type),
			Date:        r.Date.Format(DateTimeLayout),
		}
		records = append(records, rec)
		cells = append(cells, []any{rec.ID, rec.ProductName, rec.Quantity, rec.Price, rec.Type, rec.Date})
	}
	return Document{
		Title:       ProductHistoryName,
		GeneratedAt: now,
		Filters:     []Field{{Label: "Filtro de Produto", Value: filter}},
		Columns:     []string{"ID", "Produto", "Quantidade", "Preço", "Tipo", "Data"},
		Rows:        cells,
		Metadata: HistoryMetadata{
			ReportName:   ProductHistoryName,
			GeneratedAt:  now.Format(DateTimeLayout),
			Filters:      map[string]string{"product_id": filter},
			TotalRecords: len(records),
		},
		Data: records,
	}
}

// FinancialDocument builds the financial entries export.
func FinancialDocument(rep finance.Report) Document {
	cells := make([][]any, 0, len(rep.Data))
	for _, e := range rep.Data {
		cells = append(cells, []any{e.ID, e.Name, e.Description, e.Value, e.Date.Format(DateLayout), e.Category, string(e.Type)})
	}
	filter := rep.Metadata.Filters["entry_id"]
	if filter == "" {
		filter = allFilter
	}
	return Document{
		Title:       rep.Metadata.ReportName,
		GeneratedAt: rep.Metadata.GeneratedAt,
		Filters:     []Field{{Label: "Filtro de Lançamento", Value: filter}},
		Summary: []Field{
			{Label: "Total de receitas", Value: BRL(rep.Metadata.TotalIncomes)},
			{Label: "Total de despesas", Value: BRL(rep.Metadata.TotalExpenses)},
			{Label: "Saldo", Value: BRL(rep.Metadata.Balance)},
		},
		Columns:  []string{"ID", "Nome", "Descrição", "Valor", "Data", "Categoria/Tipo", "Tipo de Lançamento"},
		Rows:     cells,
		Metadata: rep.Metadata,
		Data:     rep.Data,
	}
}
