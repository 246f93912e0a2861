// Package table holds the in-memory tabular model shared by the matching packages
// along with CSV readers and writers.
package table

import (
	"fmt"
)

// Record is one row, positionally aligned with its table's columns.
type Record []Value

// Table is an ordered set of records sharing a column set.
type Table struct {
	Name    string
	columns []string
	index   map[string]int
	records []Record
}

// New creates an empty table. Column names must be unique.
func New(name string, columns []string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, columns: cols, index: idx}, nil
}

// MustNew is New for literals in tests and fixed layouts.
func MustNew(name string, columns []string, rows ...Record) *Table {
	t, err := New(name, columns)
	if err != nil {
		panic(err)
	}
	for _, r := range rows {
		if err := t.Append(r); err != nil {
			panic(err)
		}
	}
	return t
}

// Append adds a record. Its width must match the column count.
func (t *Table) Append(r Record) error {
	if len(r) != len(t.columns) {
		return fmt.Errorf("record has %d values, table %q has %d columns", len(r), t.Name, len(t.columns))
	}
	cp := make(Record, len(r))
	copy(cp, r)
	t.records = append(t.records, cp)
	return nil
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Len() int { return len(t.records) }

// Index returns the position of col.
func (t *Table) Index(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Has reports whether every named column exists.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			return false
		}
	}
	return true
}

// Row returns the record at position i. Callers must not modify it.
func (t *Table) Row(i int) Record { return t.records[i] }

// Get returns the value of col in row i, or missing if col is unknown.
func (t *Table) Get(i int, col string) Value {
	c, ok := t.index[col]
	if !ok {
		return Null()
	}
	return t.records[i][c]
}

// ColumnKind summarises the non-missing values of col: Number or String when uniform,
// Missing when every value is missing, Mixed otherwise.
func (t *Table) ColumnKind(col string) (Kind, error) {
	c, ok := t.index[col]
	if !ok {
		return Missing, fmt.Errorf("unknown column %q", col)
	}
	kind := Missing
	for _, r := range t.records {
		k := r[c].Kind()
		if k == Missing {
			continue
		}
		if kind == Missing {
			kind = k
			continue
		}
		if kind != k {
			return Mixed, nil
		}
	}
	return kind, nil
}

// Subset returns a new table holding the given rows, in the given order.
func (t *Table) Subset(rows []int) *Table {
	out := &Table{Name: t.Name, columns: t.Columns(), index: t.index}
	out.records = make([]Record, 0, len(rows))
	for _, i := range rows {
		out.records = append(out.records, t.records[i])
	}
	return out
}

// Rename returns a shallow copy with columns renamed through m. Unmapped columns keep their name.
func (t *Table) Rename(m map[string]string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := m[c]; ok && to != "" {
			cols[i] = to
		} else {
			cols[i] = c
		}
	}
	out, err := New(t.Name, cols)
	if err != nil {
		return nil, fmt.Errorf("rename %q: %w", t.Name, err)
	}
	out.records = t.records
	return out, nil
}
