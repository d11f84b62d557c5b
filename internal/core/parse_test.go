package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildXLSX writes rows into the first sheet of a new workbook.
func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUploadedFileExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"sales.csv", "csv"},
		{"report.final.xlsx", "xlsx"},
		{"DATA.CSV", "CSV"},
		{"noext", "noext"},
		{"trailing.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UploadedFile{Name: tt.name}.Extension())
		})
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("date,region,amount\n2024-01-01,east,10\n2024-01-02,west,NA\n2024-01-03,,7.5\n")

	ds, err := Parse(context.Background(), UploadedFile{Name: "sales.csv", Data: data})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "region", "amount"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, 2, ds.MissingCount())

	amount, ok := ds.Column("amount")
	require.True(t, ok)
	assert.Equal(t, TypeNumeric, amount.Type)
	region, _ := ds.Column("region")
	assert.Equal(t, TypeText, region.Type)
}

func TestParseCSV_BOMAndShortRows(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1\n2,3\n")...)

	ds, err := Parse(context.Background(), UploadedFile{Name: "bom.csv", Data: data})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ds.ColumnNames())
	assert.True(t, ds.Row(0)[1].Missing)
	assert.Equal(t, "3", ds.Row(1)[1].Raw)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	ds, err := Parse(context.Background(), UploadedFile{Name: "h.csv", Data: []byte("x,y\n")})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.RowCount())
	assert.Equal(t, 2, ds.ColumnCount())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    UploadedFile
		wantErr error
	}{
		{"unsupported extension", UploadedFile{Name: "notes.txt", Data: []byte("a,b\n")}, ErrUnsupportedFormat},
		{"uppercase extension", UploadedFile{Name: "DATA.CSV", Data: []byte("a,b\n")}, ErrUnsupportedFormat},
		{"empty csv", UploadedFile{Name: "empty.csv", Data: nil}, ErrParseFailure},
		{"too many fields", UploadedFile{Name: "bad.csv", Data: []byte("a,b\n1,2,3\n")}, ErrParseFailure},
		{"bare quote", UploadedFile{Name: "quote.csv", Data: []byte("a,b\n\"x,1\n")}, ErrParseFailure},
		{"not a workbook", UploadedFile{Name: "fake.xlsx", Data: []byte("a,b\n1,2\n")}, ErrParseFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse(context.Background(), tt.file)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.wantErr)

			var fe *FileError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.file.Name, fe.FileName)
			assert.Contains(t, err.Error(), "error reading file "+tt.file.Name)
		})
	}
}

func TestParseXLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"date", "region", "amount"},
		{"2024-01-01", "east", 10},
		{"2024-01-02", "west", 12.5},
		{},
		{"2024-01-03", "east", nil},
	})

	ds, err := Parse(context.Background(), UploadedFile{Name: "data.xlsx", Data: data})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "region", "amount"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.RowCount(), "blank row skipped")

	amount, ok := ds.Column("amount")
	require.True(t, ok)
	assert.Equal(t, TypeNumeric, amount.Type)
	assert.Equal(t, "10", amount.Cells[0].Raw)
	assert.True(t, amount.Cells[2].Missing)
}

func TestParseXLSX_FormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"amount", "rate", "price", "when", "label"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1234, 0.125, 9.5, 45292, "1,000"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{56789, 0.5, 12, 45293, "2,000"}))

	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	require.NoError(t, err)
	currency := `"$"#,##0.00`
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currency})
	require.NoError(t, err)
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A3", thousands))
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B3", percent))
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C3", money))
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D3", date))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Parse(context.Background(), UploadedFile{Name: "styled.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)

	tests := []struct {
		column string
		typ    ColumnType
		first  string
	}{
		{"amount", TypeNumeric, "1234"},
		{"rate", TypeNumeric, "0.125"},
		{"price", TypeNumeric, "9.5"},
		{"label", TypeText, "1,000"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col, ok := ds.Column(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.typ, col.Type)
			assert.Equal(t, tt.first, col.Cells[0].Raw)
		})
	}

	when, ok := ds.Column("when")
	require.True(t, ok)
	assert.NotEqual(t, "45292", when.Cells[0].Raw, "dates keep their display text")
	assert.Equal(t, TypeText, when.Type)

	proj, ok := Project(ds)
	require.True(t, ok)
	assert.Equal(t, "amount", proj.Series[0].Name)
}

func TestIsDateFormatCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"[h]:mm:ss", true},
		{"d-mmm", true},
		{"#,##0.00", false},
		{"0.00%", false},
		{`"$"#,##0.00`, false},
		{"[Red]#,##0", false},
		{`0 "days"`, false},
		{"General", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormatCode(tt.code))
		})
	}
}

func TestParseXLSX_Empty(t *testing.T) {
	data := buildXLSX(t, nil)

	_, err := Parse(context.Background(), UploadedFile{Name: "blank.xlsx", Data: data})
	assert.ErrorIs(t, err, ErrParseFailure)
}
