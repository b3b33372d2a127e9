package export

import (
	"encoding/csv"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a UTF-8 BOM, the preamble, a blank line, the header and the
// rows.
func WriteCSV(w io.Writer, doc Document) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	for _, line := range doc.Preamble() {
		if err := writer.Write([]string{line}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{}); err != nil {
		return err
	}
	if err := writer.Write(doc.Columns); err != nil {
		return err
	}
	for _, row := range doc.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = FormatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
