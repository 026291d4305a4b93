// Package dataset loads the housing table and answers the column-level
// questions the training run and the dashboard ask of it.
package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Table is a numeric table with named columns, stored row-major.
type Table struct {
	header []string
	rows   [][]float64
	index  map[string]int
}

// NewTable builds a table from a header and rows of equal width.
func NewTable(header []string, rows [][]float64) (*Table, error) {
	index := make(map[string]int, len(header))
	for j, name := range header {
		if _, dup := index[name]; dup {
			return nil, errors.NewDataError("load", "duplicate column", name)
		}
		index[name] = j
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.WithStack(&errors.DataError{Stage: "load", Row: i, Reason: "row width does not match header"})
		}
	}
	return &Table{header: append([]string(nil), header...), rows: rows, index: index}, nil
}

// ReadCSV parses a comma-separated table with a header row. Empty cells and
// "NA" become NaN; any other non-numeric cell is a DataError naming the
// column and the zero-based data row.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewDataError("load", "dataset has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read dataset header")
	}
	for j := range header {
		header[j] = strings.TrimSpace(header[j])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]float64
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read dataset row %d", i)
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.NewRowDataError("load", header[j], i, "non-numeric value "+strconv.Quote(cell))
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return NewTable(header, rows)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "NA") || strings.EqualFold(cell, "NaN") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// Load reads the CSV artifact at key from the store.
func Load(store artifact.Store, key string) (*Table, error) {
	data, err := store.Load(key)
	if err != nil {
		return nil, err
	}
	return ReadCSV(bytes.NewReader(data))
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Missing returns the names that are not columns of t, in the given order.
func (t *Table) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, errors.NewDataError("validate", "column not found", name)
	}
	col := make([]float64, len(t.rows))
	for i, row := range t.rows {
		col[i] = row[j]
	}
	return col, nil
}

// Select returns the named columns as an n×len(names) matrix. Every missing
// column is reported in a single DataError.
func (t *Table) Select(names ...string) (*mat.Dense, error) {
	if missing := t.Missing(names...); len(missing) > 0 {
		return nil, errors.NewDataError("validate", "column not found", missing...)
	}
	if len(t.rows) == 0 {
		return nil, errors.NewDataError("validate", errors.ErrEmptyData.Error())
	}
	if len(names) == 0 {
		return nil, errors.NewDataError("validate", "no columns selected")
	}

	out := mat.NewDense(len(t.rows), len(names), nil)
	for j, name := range names {
		src := t.index[name]
		for i, row := range t.rows {
			out.Set(i, j, row[src])
		}
	}
	return out, nil
}

// Row returns the named values of row i.
func (t *Table) Row(i int) map[string]float64 {
	out := make(map[string]float64, len(t.header))
	for j, name := range t.header {
		out[name] = t.rows[i][j]
	}
	return out
}

// Head returns a table with the first n rows.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, len(t.rows)))
	return &Table{header: t.header, rows: t.rows[:n], index: t.index}
}

// Value returns the cell at row i, column name.
func (t *Table) Value(i int, name string) (float64, bool) {
	j, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.rows) {
		return 0, false
	}
	return t.rows[i][j], true
}
