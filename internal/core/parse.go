package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/fileconv/internal/logging"
	"github.com/xuri/excelize/v2"
)

// Accepted source extensions. Matching is case-sensitive.
const (
	ExtCSV  = "csv"
	ExtXLSX = "xlsx"
)

// errEmptyFile is the parse cause for input with no header row.
var errEmptyFile = errors.New("empty file: no columns to parse")

// UploadedFile is one file supplied by the upload mechanism.
type UploadedFile struct {
	Name string
	Data []byte
}

// Extension returns the substring after the last "." of the file name, or
// the whole name when it has no dot.
func (f UploadedFile) Extension() string {
	if i := strings.LastIndex(f.Name, "."); i >= 0 {
		return f.Name[i+1:]
	}
	return f.Name
}

// Parse reads an uploaded file into a Dataset, choosing the reader from the
// file extension. Errors are *FileError values wrapping ErrUnsupportedFormat
// or ErrParseFailure.
func Parse(ctx context.Context, file UploadedFile) (*Dataset, error) {
	logger := logging.ForFile(ctx, file.Name)

	var (
		header  []string
		records [][]string
		err     error
	)
	switch ext := file.Extension(); ext {
	case ExtCSV:
		header, records, err = readCSV(file.Data)
	case ExtXLSX:
		header, records, err = readXLSX(file.Data)
	default:
		return nil, &FileError{FileName: file.Name, Op: OpRead, Err: fmt.Errorf("%w: %q (expected csv or xlsx)", ErrUnsupportedFormat, ext)}
	}
	if err != nil {
		return nil, &FileError{FileName: file.Name, Op: OpRead, Err: parseFailure(err)}
	}

	ds := NewDataset(header, records)
	logger.Debug("file parsed",
		"bytes", len(file.Data),
		"rows", ds.RowCount(),
		"columns", ds.ColumnCount(),
	)
	return ds, nil
}

// readCSV parses delimited text with the first record as the header.
// A record with more fields than the header is malformed; shorter records
// are padded with missing cells by NewDataset.
func readCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(wrapTextInput(bytes.NewReader(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, errEmptyFile
	}
	if err != nil {
		return nil, nil, err
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// readXLSX parses the first worksheet of a workbook with its first row as
// the header. Numbers are read as stored, so "1,234" or "12.50%" become 1234
// and 0.125; every other cell, dates included, is read as displayed.
func readXLSX(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errEmptyFile
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil, errEmptyFile
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	nums := &xlsxNumbers{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	for r := 1; r < len(rows) && r < len(raw); r++ {
		for c := 0; c < len(rows[r]) && c < len(raw[r]); c++ {
			rows[r][c] = nums.value(r, c, rows[r][c], raw[r][c])
		}
	}

	header := rows[0]
	width := len(header)
	records := make([][]string, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		// Blank rows are skipped, as encoding/csv does for blank lines.
		if len(rec) == 0 {
			continue
		}
		if len(rec) > width {
			width = len(rec)
		}
		records = append(records, rec)
	}
	// Excel trims trailing empty header cells; data beyond them still counts.
	for len(header) < width {
		header = append(header, "")
	}
	return header, records, nil
}

// xlsxNumbers replaces number-formatted display text with the stored value.
type xlsxNumbers struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool // style index -> has a date or time format
}

// value returns the cell text to use for the cell at zero-based row and col.
func (x *xlsxNumbers) value(row, col int, display, raw string) string {
	if display == raw || raw == "" {
		return display
	}
	if _, ok := parseNumber(display); ok {
		return display
	}
	if _, ok := parseNumber(raw); !ok {
		return display
	}

	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return display
	}
	typ, err := x.f.GetCellType(x.sheet, cell)
	if err != nil || (typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset) {
		return display
	}
	idx, err := x.f.GetCellStyle(x.sheet, cell)
	if err != nil {
		return display
	}
	isDate, seen := x.dateStyles[idx]
	if !seen {
		isDate = true
		if style, err := x.f.GetStyle(idx); err == nil {
			isDate = isDateStyle(style)
		}
		x.dateStyles[idx] = isDate
	}
	if isDate {
		return display
	}
	return raw
}

// isDateStyle reports whether a cell style formats numbers as a date or time.
func isDateStyle(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 22, n >= 27 && n <= 36, n >= 45 && n <= 47,
		n >= 50 && n <= 58, n >= 71 && n <= 81:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside quoted literals
// and bracketed sections such as [Red].
func isDateFormatCode(code string) bool {
	var quoted, bracketed, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracketed = true
		case r == ']':
			bracketed = false
		case bracketed:
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}
