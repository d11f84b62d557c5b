package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFillValue is the literal used by FillMissing when none is given.
const DefaultFillValue = "0"

// CleaningOptions selects the cleaning stages applied to one file.
// Columns == nil keeps every column; a non-nil empty slice is an explicit
// empty selection. An empty FillValue means the default unless
// FillValueSet marks it as chosen.
type CleaningOptions struct {
	RemoveDuplicates bool
	Columns          []string
	FillMissing      bool
	FillValue        string
	FillValueSet     bool
	ShowChart        bool
}

// CleanReport describes what the cleaning stages did.
type CleanReport struct {
	RowsBefore        int      `json:"rows_before"`
	RowsAfter         int      `json:"rows_after"`
	DedupeApplied     bool     `json:"dedupe_applied"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	ColumnsBefore     []string `json:"columns_before"`
	ColumnsAfter      []string `json:"columns_after"`
	FillApplied       bool     `json:"fill_applied"`
	FillValue         string   `json:"fill_value,omitempty"`
	CellsFilled       int      `json:"cells_filled"`
}

// Messages returns the user-facing status lines for the applied stages.
func (r CleanReport) Messages() []string {
	var msgs []string
	if r.DedupeApplied {
		msgs = append(msgs, fmt.Sprintf("Duplicates removed successfully! %d rows removed.", r.DuplicatesRemoved))
	}
	if r.FillApplied {
		msgs = append(msgs, "Missing values filled!")
	}
	return msgs
}

// Cleaner applies the cleaning stages in their fixed order.
type Cleaner struct {
	// RejectEmptySelection makes an empty Columns selection an error
	// instead of producing a table with no columns.
	RejectEmptySelection bool
}

// Clean runs dedupe, column selection and fill on ds in place.
// On error ds may have been partially cleaned.
func (c Cleaner) Clean(ds *Dataset, opts CleaningOptions) (CleanReport, error) {
	report := CleanReport{
		RowsBefore:    ds.RowCount(),
		ColumnsBefore: ds.ColumnNames(),
	}

	if opts.RemoveDuplicates {
		report.DedupeApplied = true
		report.DuplicatesRemoved = RemoveDuplicates(ds)
	}

	if opts.Columns != nil {
		if len(opts.Columns) == 0 && c.RejectEmptySelection {
			return report, ErrEmptySelection
		}
		if err := SelectColumns(ds, opts.Columns); err != nil {
			return report, err
		}
	}

	if opts.FillMissing {
		value := opts.FillValue
		if value == "" && !opts.FillValueSet {
			value = DefaultFillValue
		}
		report.FillApplied = true
		report.FillValue = value
		report.CellsFilled = FillMissing(ds, value)
	}

	report.RowsAfter = ds.RowCount()
	report.ColumnsAfter = ds.ColumnNames()
	return report, nil
}

// RemoveDuplicates drops rows that exactly repeat an earlier row across all
// current columns, keeping the first occurrence and the order of survivors.
// It returns the number of rows removed.
func RemoveDuplicates(ds *Dataset) int {
	before := ds.rows
	seen := make(map[string]struct{}, before)
	keep := make([]int, 0, before)

	var key strings.Builder
	for i := 0; i < before; i++ {
		key.Reset()
		for _, col := range ds.columns {
			writeCellKey(&key, col, col.Cells[i])
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}

	if len(keep) == before {
		return 0
	}
	for _, col := range ds.columns {
		cells := make([]Cell, len(keep))
		for j, i := range keep {
			cells[j] = col.Cells[i]
		}
		col.Cells = cells
	}
	ds.rows = len(keep)
	return before - ds.rows
}

// writeCellKey appends an unambiguous encoding of a cell. Numeric and bool
// cells compare by value, so "1" and "1.0" or "True" and "true" are
// duplicates; missing cells equal each other and differ from any text.
func writeCellKey(b *strings.Builder, col *Column, cell Cell) {
	if cell.Missing {
		b.WriteString("m;")
		return
	}
	s := cell.Raw
	switch col.Type {
	case TypeNumeric:
		if f, ok := cell.Float(); ok {
			s = strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeBool:
		if v, ok := cell.Bool(); ok {
			s = strconv.FormatBool(v)
		}
	}
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
	b.WriteByte(';')
}

// SelectColumns projects ds onto names, in the order given. Repeated names
// keep their first position. The row count is unchanged.
func SelectColumns(ds *Dataset, names []string) error {
	selected := make([]*Column, 0, len(names))
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		if picked[name] {
			continue
		}
		col, ok := ds.Column(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		picked[name] = true
		selected = append(selected, col)
	}
	ds.columns = selected
	return nil
}

// FillMissing writes value into every missing cell of every column and
// returns the number of cells filled. Cells keep the literal as their
// surface form; each touched column is then re-inferred, so a numeric
// literal leaves a numeric column numeric and any other literal turns it
// into text.
func FillMissing(ds *Dataset, value string) int {
	filled := 0
	for _, col := range ds.columns {
		n := 0
		for i := range col.Cells {
			if col.Cells[i].Missing {
				col.Cells[i] = Cell{Raw: value}
				n++
			}
		}
		if n > 0 {
			col.infer()
			filled += n
		}
	}
	return filled
}
