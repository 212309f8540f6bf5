package storage

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/atinyakov/GophLedger/internal/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of exported files.
const utf8BOM = "\ufeff"

// ExportHeader is the first row of every CSV export.
var ExportHeader = []string{"id", "date", "description", "amount", "category"}

// countingWriter tracks how many bytes reached the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteCSV writes expenses as CSV with a UTF-8 byte-order mark and a header row.
// Zero ids and amounts, as found on legacy records, become empty cells.
// It returns the number of bytes written.
func WriteCSV(w io.Writer, expenses models.Expenses) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, utf8BOM); err != nil {
		return cw.n, err
	}
	writer := csv.NewWriter(cw)
	if err := writer.Write(ExportHeader); err != nil {
		return cw.n, err
	}
	for _, exp := range expenses {
		if err := writer.Write(exportRow(exp)); err != nil {
			return cw.n, err
		}
	}
	writer.Flush()
	return cw.n, writer.Error()
}

func exportRow(exp models.Expense) []string {
	id := ""
	if exp.ID != 0 {
		id = strconv.FormatInt(exp.ID, 10)
	}
	amount := ""
	if exp.Amount != 0 {
		amount = strconv.FormatFloat(exp.Amount, 'f', -1, 64)
	}
	return []string{id, exp.Date, exp.Description, amount, exp.Category}
}
