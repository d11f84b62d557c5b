package core

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a Dataset column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumeric
	TypeBool
)

// String returns the lowercase type name used in previews and JSON.
func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeBool:
		return "bool"
	default:
		return "text"
	}
}

// MarshalText lets ColumnType appear by name in JSON responses.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// numericRegex validates that a string is a plain decimal or scientific number.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naTokens are the cell texts read as missing, matching pandas' defaults.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

var boolTokens = map[string]bool{
	"True": true, "true": true, "TRUE": true,
	"False": false, "false": false, "FALSE": false,
}

// Cell is one value of a column. Raw keeps the surface form read from the
// file (or written by a fill); Missing marks an absent value, which is
// distinct from an empty string only before parsing.
type Cell struct {
	Raw     string
	Missing bool
}

// MissingCell is the missing-value sentinel.
var MissingCell = Cell{Missing: true}

// NewCell classifies raw text read from a file. NA tokens must match
// exactly; whitespace is data.
func NewCell(raw string) Cell {
	if naTokens[raw] {
		return MissingCell
	}
	return Cell{Raw: raw}
}

// Float returns the numeric value of the cell.
func (c Cell) Float() (float64, bool) {
	if c.Missing {
		return 0, false
	}
	return parseNumber(c.Raw)
}

// Bool returns the boolean value of the cell.
func (c Cell) Bool() (bool, bool) {
	if c.Missing {
		return false, false
	}
	b, ok := boolTokens[strings.TrimSpace(c.Raw)]
	return b, ok
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Type  ColumnType
	Cells []Cell
}

// infer sets the column type from its non-missing cells: numeric when all
// parse as numbers, bool when all are boolean literals, text otherwise.
// An all-missing column is numeric.
func (c *Column) infer() {
	numeric, boolean := true, true
	for _, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		if numeric {
			if _, ok := cell.Float(); !ok {
				numeric = false
			}
		}
		if boolean {
			if _, ok := cell.Bool(); !ok {
				boolean = false
			}
		}
		if !numeric && !boolean {
			break
		}
	}
	switch {
	case numeric:
		c.Type = TypeNumeric
	case boolean:
		c.Type = TypeBool
	default:
		c.Type = TypeText
	}
}

// MissingCount returns the number of missing cells in the column.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Missing {
			n++
		}
	}
	return n
}

// Dataset is an in-memory table of named columns. The row count is held
// separately so a projection onto zero columns keeps it.
type Dataset struct {
	columns []*Column
	rows    int
}

// NewDataset builds a Dataset from a header and raw records, classifying
// NA tokens as missing and inferring each column's type. Records shorter
// than the header are padded with missing cells.
func NewDataset(header []string, records [][]string) *Dataset {
	names := normalizeHeader(header)
	ds := &Dataset{
		columns: make([]*Column, len(names)),
		rows:    len(records),
	}
	for i, name := range names {
		col := &Column{Name: name, Cells: make([]Cell, len(records))}
		for r, rec := range records {
			if i < len(rec) {
				col.Cells[r] = NewCell(rec[i])
			} else {
				col.Cells[r] = MissingCell
			}
		}
		col.infer()
		ds.columns[i] = col
	}
	return ds
}

// normalizeHeader names empty headers "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ... so every column name is unique. Other names
// are kept exactly, surrounding spaces included.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for seen[name] > 0 {
			name = base + "." + strconv.Itoa(seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int { return d.rows }

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int { return len(d.columns) }

// ColumnNames returns the column names in current order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in current order. Callers must not mutate them.
func (d *Dataset) Columns() []*Column { return d.columns }

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns the cells of row i across all columns.
func (d *Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Cells[i]
	}
	return row
}

// MissingCount returns the number of missing cells across all columns.
func (d *Dataset) MissingCount() int {
	n := 0
	for _, c := range d.columns {
		n += c.MissingCount()
	}
	return n
}

// Clone returns a deep copy so a cached parse can be cleaned per request.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{columns: make([]*Column, len(d.columns)), rows: d.rows}
	for i, c := range d.columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.columns[i] = &Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	return out
}

// Preview is a display-ready slice of a Dataset.
type Preview struct {
	Columns   []string     `json:"columns"`
	Types     []ColumnType `json:"types"`
	Rows      [][]string   `json:"rows"`
	Missing   [][]bool     `json:"missing"`
	TotalRows int          `json:"total_rows"`
}

// Head returns the first n rows for display. Missing cells render as empty
// strings and are flagged in Missing.
func (d *Dataset) Head(n int) Preview {
	if n > d.rows {
		n = d.rows
	}
	p := Preview{
		Columns:   d.ColumnNames(),
		Types:     make([]ColumnType, len(d.columns)),
		Rows:      make([][]string, n),
		Missing:   make([][]bool, n),
		TotalRows: d.rows,
	}
	for j, c := range d.columns {
		p.Types[j] = c.Type
	}
	for i := 0; i < n; i++ {
		p.Rows[i] = make([]string, len(d.columns))
		p.Missing[i] = make([]bool, len(d.columns))
		for j, c := range d.columns {
			p.Rows[i][j] = c.Cells[i].Raw
			p.Missing[i][j] = c.Cells[i].Missing
		}
	}
	return p
}
