// Package export renders tabular reports as CSV, XLSX, JSON or HTML.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// Date layouts used in exported cells.
const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04:05"
)

// ParseFormat validates the format query parameter.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatPDF:
		return f, nil
	case "":
		return "", shared.Validationf("format is required")
	default:
		return "", shared.Validationf("format must be one of [xlsx csv pdf json]")
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=UTF-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename appends the format extension to base, dropping characters that
// would break a Content-Disposition header.
func (f Format) Filename(base string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			return -1
		}
		return r
	}, base)
	return clean + "." + string(f)
}

// Field is a labelled line of the report preamble.
type Field struct {
	Label string
	Value string
}

// Document is a report ready to be rendered in any format. Row cells are
// strings, integers or decimals; decimals are money.
type Document struct {
	Title       string
	Sheet       string
	GeneratedAt time.Time
	Filters     []Field
	Summary     []Field
	Columns     []string
	Rows        [][]any
	// Metadata and Data form the JSON body.
	Metadata any
	Data     any
}

// Preamble lists the lines printed above the table.
func (d Document) Preamble() []string {
	lines := []string{
		"Relatório: " + d.Title,
		"Gerado em: " + d.GeneratedAt.Format(DateTimeLayout),
		fmt.Sprintf("Total de registros: %d", len(d.Rows)),
	}
	for _, f := range d.Summary {
		lines = append(lines, f.Label+": "+f.Value)
	}
	return lines
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// BRL formats an amount as Brazilian reais, e.g. R$ 1.234,56.
func BRL(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return brl.Sprintf("R$ %.2f", f)
}

// FormatCell renders a cell as text.
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case decimal.Decimal:
		return BRL(c)
	case time.Time:
		return c.Format(DateTimeLayout)
	default:
		return fmt.Sprint(c)
	}
}
