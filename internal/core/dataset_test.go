package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCell(t *testing.T) {
	tests := []struct {
		raw     string
		missing bool
	}{
		{"", true},
		{"   ", false},
		{" NA ", false},
		{"NA", true},
		{"N/A", true},
		{"NaN", true},
		{"nan", true},
		{"null", true},
		{"NULL", true},
		{"None", true},
		{"#N/A", true},
		{"<NA>", true},
		{"0", false},
		{"none", false},
		{"hello", false},
		{"na", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cell := NewCell(tt.raw)
			assert.Equal(t, tt.missing, cell.Missing)
			if !tt.missing {
				assert.Equal(t, tt.raw, cell.Raw)
			}
		})
	}
}

func TestCellFloat(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"-3.5", -3.5, true},
		{"+.5", 0.5, true},
		{"1e3", 1000, true},
		{" 7 ", 7, true},
		{"1,000", 0, false},
		{"$5", 0, false},
		{"Inf", 0, false},
		{"0x10", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Cell{Raw: tt.raw}.Float()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}

	_, ok := MissingCell.Float()
	assert.False(t, ok, "missing cell has no value")
}

func TestColumnInference(t *testing.T) {
	ds := NewDataset(
		[]string{"id", "name", "active", "empty", "mixed"},
		[][]string{
			{"1", "Ann", "True", "", "1"},
			{"2", "Bob", "false", "NA", "x"},
			{"3", "", "TRUE", "", "2"},
		},
	)

	want := map[string]ColumnType{
		"id":     TypeNumeric,
		"name":   TypeText,
		"active": TypeBool,
		"empty":  TypeNumeric,
		"mixed":  TypeText,
	}
	for name, typ := range want {
		col, ok := ds.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, col.Type, name)
	}
}

func TestNewDataset_PadsShortRecords(t *testing.T) {
	ds := NewDataset([]string{"a", "b", "c"}, [][]string{{"1"}, {"1", "2", "3"}})

	require.Equal(t, 2, ds.RowCount())
	row := ds.Row(0)
	assert.Equal(t, "1", row[0].Raw)
	assert.True(t, row[1].Missing)
	assert.True(t, row[2].Missing)
	assert.Equal(t, 2, ds.MissingCount())
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"unique", []string{"a", "b"}, []string{"a", "b"}},
		{"blank", []string{"a", "", ""}, []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{"duplicates", []string{"x", "x", "x"}, []string{"x", "x.1", "x.2"}},
		{"spaces kept", []string{" amount ", " "}, []string{" amount ", " "}},
		{"spaced name is distinct", []string{"id", " id "}, []string{"id", " id "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeHeader(tt.header))
		})
	}
}

func TestDatasetClone_IsIndependent(t *testing.T) {
	ds := NewDataset([]string{"a", "b"}, [][]string{{"1", ""}, {"1", ""}})
	clone := ds.Clone()

	RemoveDuplicates(clone)
	FillMissing(clone, "z")
	require.NoError(t, SelectColumns(clone, []string{"b"}))

	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, []string{"a", "b"}, ds.ColumnNames())
	assert.Equal(t, 2, ds.MissingCount())

	assert.Equal(t, 1, clone.RowCount())
	assert.Equal(t, []string{"b"}, clone.ColumnNames())
}

func TestHead(t *testing.T) {
	ds := NewDataset([]string{"n", "s"}, [][]string{
		{"1", "a"}, {"2", ""}, {"3", "c"},
	})

	p := ds.Head(2)
	assert.Equal(t, []string{"n", "s"}, p.Columns)
	assert.Equal(t, []ColumnType{TypeNumeric, TypeText}, p.Types)
	assert.Equal(t, [][]string{{"1", "a"}, {"2", ""}}, p.Rows)
	assert.Equal(t, [][]bool{{false, false}, {false, true}}, p.Missing)
	assert.Equal(t, 3, p.TotalRows)

	assert.Len(t, ds.Head(10).Rows, 3, "n larger than the table")
}
