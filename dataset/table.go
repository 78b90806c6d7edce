package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Table is a rectangular block of float64 cells with named columns.
type Table struct {
	Header []string
	data   *tensor.Dense
}

// NewTable copies rows into a rows x len(header) tensor. Every row must have
// len(header) values.
func NewTable(header []string, rows [][]float64) (*Table, error) {
	width := len(header)
	t := &Table{Header: append([]string(nil), header...)}
	if len(rows) == 0 || width == 0 {
		return t, nil
	}
	backing := make([]float64, 0, len(rows)*width)
	for r, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("row %d has %d values, header has %d", r, len(row), width)
		}
		backing = append(backing, row...)
	}
	t.data = tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(len(rows), width), tensor.WithBacking(backing))
	return t, nil
}

// ReadCSV parses a CSV document whose first record is the header. Cells that
// are not numbers are stored as 0.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, len(record))
		for i, cell := range record {
			row[i] = parseCell(cell)
		}
		rows = append(rows, row)
	}
	return NewTable(header, rows)
}

func parseCell(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// Len is the number of data rows.
func (t *Table) Len() int {
	if t.data == nil {
		return 0
	}
	return t.data.Shape()[0]
}

// Width is the number of columns.
func (t *Table) Width() int {
	return len(t.Header)
}

// At returns the cell at row r, column c.
func (t *Table) At(r, c int) (float64, error) {
	if t.data == nil {
		return 0, errors.Wrapf(ErrColumnOutOfRange, "empty table")
	}
	v, err := t.data.At(r, c)
	if err != nil {
		return 0, errors.Wrapf(ErrColumnOutOfRange, "cell (%d, %d): %v", r, c, err)
	}
	return v.(float64), nil
}

// Rows returns a row-major copy of the table.
func (t *Table) Rows() [][]float64 {
	n := t.Len()
	if n == 0 {
		return nil
	}
	rows := make([][]float64, n)
	for r := range rows {
		rows[r] = make([]float64, t.Width())
		for c := range rows[r] {
			v, _ := t.data.At(r, c)
			rows[r][c] = v.(float64)
		}
	}
	return rows
}

// ColumnIndex returns the index of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// ColumnIndices resolves names to column indices.
func (t *Table) ColumnIndices(names []string) ([]int, error) {
	indices := make([]int, len(names))
	for i, name := range names {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownColumn, "%q", name)
		}
		indices[i] = idx
	}
	return indices, nil
}

// WriteCSV writes the header and every row of t to w.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	record := make([]string, t.Width())
	for _, row := range t.Rows() {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush csv")
}
