package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportFormat is the target encoding of a download.
type ExportFormat int

const (
	FormatCSV ExportFormat = iota
	FormatExcel
)

// MIME types of the export formats.
const (
	MIMECSV   = "text/csv"
	MIMEExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// excelSheet is the name of the single exported worksheet.
const excelSheet = "Sheet1"

// ParseExportFormat accepts "csv", "excel" or "xlsx" in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return FormatCSV, fmt.Errorf("%w: %q", ErrUnknownExportFormat, s)
	}
}

// String returns the label shown in the UI.
func (f ExportFormat) String() string {
	if f == FormatExcel {
		return "Excel"
	}
	return "CSV"
}

// Extension returns the canonical file extension without a dot.
func (f ExportFormat) Extension() string {
	if f == FormatExcel {
		return ExtXLSX
	}
	return ExtCSV
}

// MIME returns the download content type.
func (f ExportFormat) MIME() string {
	if f == FormatExcel {
		return MIMEExcel
	}
	return MIMECSV
}

// Export is a serialized Dataset ready for download.
type Export struct {
	Data     []byte
	MIME     string
	FileName string
}

// OutputFileName replaces the trailing extension segment of source with the
// format's extension. Only the last segment changes, so "csv_report.csv"
// becomes "csv_report.xlsx". A name without a dot gets the extension
// appended.
func OutputFileName(source string, format ExportFormat) string {
	if i := strings.LastIndex(source, "."); i >= 0 {
		return source[:i+1] + format.Extension()
	}
	return source + "." + format.Extension()
}

// Serialize encodes ds in the given format. Neither encoding writes a row
// index column.
func Serialize(ds *Dataset, format ExportFormat, sourceName string) (*Export, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = encodeCSV(ds)
	case FormatExcel:
		data, err = encodeExcel(ds)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownExportFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", format, err)
	}
	return &Export{
		Data:     data,
		MIME:     format.MIME(),
		FileName: OutputFileName(sourceName, format),
	}, nil
}

// encodeCSV writes the header then one record per row. Missing cells are
// written empty; every other cell keeps its surface form.
func encodeCSV(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ds.ColumnNames()); err != nil {
		return nil, err
	}
	record := make([]string, ds.ColumnCount())
	for i := 0; i < ds.RowCount(); i++ {
		for j, col := range ds.columns {
			record[j] = col.Cells[i].Raw
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeExcel writes a single-sheet workbook through excelize's stream
// writer. Numeric and boolean columns produce typed cells; missing cells
// are left blank.
func encodeExcel(ds *Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(excelSheet)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, ds.ColumnCount())
	for j, name := range ds.ColumnNames() {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i := 0; i < ds.RowCount(); i++ {
		row := make([]interface{}, ds.ColumnCount())
		for j, col := range ds.columns {
			row[j] = excelValue(col, col.Cells[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func excelValue(col *Column, cell Cell) interface{} {
	if cell.Missing {
		return nil
	}
	switch col.Type {
	case TypeNumeric:
		if f, ok := cell.Float(); ok {
			return f
		}
	case TypeBool:
		if b, ok := cell.Bool(); ok {
			return b
		}
	}
	return cell.Raw
}
