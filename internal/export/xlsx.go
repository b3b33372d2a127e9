package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var moneyFormat = `"R$" #,##0.00`

// WriteXLSX writes the document as a single-sheet workbook. The preamble is
// bold, the header row is bold on a grey fill and money cells keep their
// numeric value.
func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(doc)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
	})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return err
	}

	row := 1
	for _, line := range doc.Preamble() {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, cell, line); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, titleStyle); err != nil {
			return err
		}
		row++
	}
	row++

	for i, col := range doc.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if len(doc.Columns) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(doc.Columns), row)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(doc.Columns))
		if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
			return err
		}
	}
	row++

	for _, values := range doc.Rows {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if d, ok := v.(decimal.Decimal); ok {
				amount, _ := d.Round(2).Float64()
				if err := f.SetCellValue(sheet, cell, amount); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}
	return f.Write(w)
}

func sheetName(doc Document) string {
	name := doc.Sheet
	if name == "" {
		name = doc.Title
	}
	if name == "" {
		return "Sheet1"
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}
