package models

import (
	"errors"
	"fmt"
)

// Table is a loaded dataset kept as raw text cells, one slice per column.
// Type coercion happens later, per analysis, on the selected columns only.
type Table struct {
	names []string
	cols  [][]string
	index map[string]int
}

// NewTable builds a table from a header and row-major records. Every
// record must have one cell per header name and names must be unique.
func NewTable(names []string, records [][]string) (*Table, error) {
	if len(names) == 0 {
		return nil, errors.New("no columns found")
	}

	index := make(map[string]int, len(names))
	for j, na := range names {
		if _, dup := index[na]; dup {
			return nil, fmt.Errorf("duplicate column name %q", na)
		}
		index[na] = j
	}

	cols := make([][]string, len(names))
	for j := range cols {
		cols[j] = make([]string, len(records))
	}
	for i, rec := range records {
		if len(rec) != len(names) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+1, len(rec), len(names))
		}
		for j, v := range rec {
			cols[j][i] = v
		}
	}

	return &Table{
		names: append([]string(nil), names...),
		cols:  cols,
		index: index,
	}, nil
}

// Names returns the column names in file order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

func (t *Table) NumCols() int {
	return len(t.names)
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the raw cells of a column. The slice is shared with the
// table and must not be modified.
func (t *Table) Column(name string) ([]string, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[j], true
}
