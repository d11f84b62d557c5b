package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// salesCSV has ten rows, two of which repeat earlier rows.
func salesCSV() []byte {
	var b strings.Builder
	b.WriteString("date,region,amount\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,east,%d\n", i, i*10)
	}
	b.WriteString("2024-01-01,east,10\n")
	b.WriteString("2024-01-02,east,20\n")
	return []byte(b.String())
}

// reportCSV has ten rows with five missing amounts.
func reportCSV() []byte {
	var b strings.Builder
	b.WriteString("date,region,amount\n")
	for i := 1; i <= 10; i++ {
		amount := ""
		if i%2 == 0 {
			amount = fmt.Sprint(i)
		}
		fmt.Fprintf(&b, "2024-02-%02d,west,%s\n", i, amount)
	}
	return []byte(b.String())
}

func newTestPipeline(mode IsolationMode) *Pipeline {
	return NewPipeline(PipelineConfig{Isolation: mode}, nil)
}

func TestParseIsolationMode(t *testing.T) {
	for in, want := range map[string]IsolationMode{
		"recover":      IsolationRecover,
		" Recover ":    IsolationRecover,
		"SHORTCIRCUIT": IsolationShortCircuit,
		"shortcircuit": IsolationShortCircuit,
	} {
		got, err := ParseIsolationMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseIsolationMode("ignore")
	assert.Error(t, err)
}

func TestNewPipeline_DefaultsToRecover(t *testing.T) {
	assert.Equal(t, IsolationRecover, NewPipeline(PipelineConfig{}, nil).Isolation())
}

func TestPipelineRun_RemoveDuplicates(t *testing.T) {
	p := newTestPipeline(IsolationRecover)
	file := UploadedFile{Name: "sales.csv", Data: salesCSV()}

	res, err := p.Run(context.Background(), file, CleaningOptions{RemoveDuplicates: true}, FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Dataset.RowCount())
	assert.Equal(t, 2, res.Report.DuplicatesRemoved)
	assert.Equal(t, []string{"Duplicates removed successfully! 2 rows removed."}, res.Report.Messages())
	assert.Equal(t, "sales.csv", res.Export.FileName)
	assert.Nil(t, res.Chart, "chart not requested")
}

func TestPipelineRun_SelectColumnsFromExcel(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"date", "region", "amount"},
		{"2024-01-01", "east", 10},
		{"2024-01-02", "west", 20},
	})
	p := newTestPipeline(IsolationRecover)

	res, err := p.Run(context.Background(),
		UploadedFile{Name: "data.xlsx", Data: data},
		CleaningOptions{Columns: []string{"region", "amount"}, ShowChart: true},
		FormatCSV,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "amount"}, res.Dataset.ColumnNames())
	assert.Equal(t, 2, res.Dataset.RowCount())
	assert.Equal(t, "data.csv", res.Export.FileName)
	assert.Equal(t, "region,amount\neast,10\nwest,20\n", string(res.Export.Data))

	require.NotNil(t, res.Chart)
	require.Len(t, res.Chart.Series, 1)
	assert.Equal(t, "amount", res.Chart.Series[0].Name)
}

func TestPipelineRun_FillAndExportExcel(t *testing.T) {
	p := newTestPipeline(IsolationRecover)

	res, err := p.Run(context.Background(),
		UploadedFile{Name: "report.csv", Data: reportCSV()},
		CleaningOptions{FillMissing: true},
		FormatExcel,
	)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Report.CellsFilled)
	assert.Equal(t, 0, res.Dataset.MissingCount())
	assert.Equal(t, "report.xlsx", res.Export.FileName)
	assert.Equal(t, MIMEExcel, res.Export.MIME)

	f, err := excelize.OpenReader(bytes.NewReader(res.Export.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(excelSheet)
	require.NoError(t, err)
	require.Len(t, rows, 11)
	assert.Equal(t, []string{"date", "region", "amount"}, rows[0])
	assert.Equal(t, "0", rows[1][2])
	assert.Equal(t, "2", rows[2][2])
}

func TestPipelineRun_WhitespaceIsData(t *testing.T) {
	p := newTestPipeline(IsolationRecover)
	file := UploadedFile{Name: "padded.csv", Data: []byte(" id ,note\n1,  \n2,x\n3,\n")}

	res, err := p.Run(context.Background(), file, CleaningOptions{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{" id ", "note"}, res.Dataset.ColumnNames())
	assert.Equal(t, "\" id \",note\n1,\"  \"\n2,x\n3,\n", string(res.Export.Data))

	res, err = p.Run(context.Background(), file, CleaningOptions{FillMissing: true, FillValue: "0"}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.CellsFilled, "only the empty cell is missing")
	assert.Equal(t, "\" id \",note\n1,\"  \"\n2,x\n3,0\n", string(res.Export.Data))
}

func TestPipelineRun_UnsupportedFormat(t *testing.T) {
	p := newTestPipeline(IsolationRecover)

	res, err := p.Run(context.Background(), UploadedFile{Name: "notes.txt", Data: []byte("hello")}, CleaningOptions{}, FormatCSV)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "FILE001", MapError(err).Code)
}

func TestPipelineRun_ChartNotApplicable(t *testing.T) {
	p := newTestPipeline(IsolationRecover)
	file := UploadedFile{Name: "names.csv", Data: []byte("first,last\nAda,Lovelace\n")}

	res, err := p.Run(context.Background(), file, CleaningOptions{ShowChart: true}, FormatCSV)
	require.NoError(t, err)
	assert.Nil(t, res.Chart)
}

func TestPipelineProcess_CleaningErrorIsFileError(t *testing.T) {
	p := NewPipeline(PipelineConfig{RejectEmptySelection: true}, nil)
	ds := NewDataset([]string{"a"}, [][]string{{"1"}})

	_, err := p.Process(context.Background(), "a.csv", ds, CleaningOptions{Columns: []string{}}, FormatCSV)
	assert.ErrorIs(t, err, ErrEmptySelection)

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "a.csv", fe.FileName)
	assert.Equal(t, OpClean, fe.Op)
	assert.Equal(t, "error cleaning file a.csv: empty column selection", err.Error())
	assert.Equal(t, "empty column selection", fe.Cause())
}

func TestPipelineProcess_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := NewDataset([]string{"a"}, [][]string{{"1"}})
	_, err := newTestPipeline(IsolationRecover).Process(ctx, "a.csv", ds, CleaningOptions{}, FormatCSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineIsolation_Panic(t *testing.T) {
	t.Run("recover turns panic into processing failure", func(t *testing.T) {
		p := newTestPipeline(IsolationRecover)
		var err error
		assert.NotPanics(t, func() {
			_, err = p.Process(context.Background(), "broken.csv", nil, CleaningOptions{}, FormatCSV)
		})
		assert.ErrorIs(t, err, ErrProcessingFailure)
		assert.NotErrorIs(t, err, ErrParseFailure)
		assert.Equal(t, "FILE006", MapError(err).Code)

		var fe *FileError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "broken.csv", fe.FileName)
		assert.Equal(t, OpClean, fe.Op)
		assert.Contains(t, err.Error(), "error cleaning file broken.csv")
	})

	t.Run("shortcircuit propagates panic", func(t *testing.T) {
		p := newTestPipeline(IsolationShortCircuit)
		assert.Panics(t, func() {
			_, _ = p.Process(context.Background(), "broken.csv", nil, CleaningOptions{}, FormatCSV)
		})
	})
}

func TestRunBatch_ContinuesAfterFailure(t *testing.T) {
	for _, mode := range []IsolationMode{IsolationRecover, IsolationShortCircuit} {
		t.Run(string(mode), func(t *testing.T) {
			p := newTestPipeline(mode)
			files := []UploadedFile{
				{Name: "notes.txt", Data: []byte("x")},
				{Name: "bad.csv", Data: []byte("a,b\n1,2,3\n")},
				{Name: "sales.csv", Data: salesCSV()},
			}

			var calls []int
			outcomes := p.RunBatch(context.Background(), files, func(i int, f UploadedFile) (CleaningOptions, ExportFormat) {
				calls = append(calls, i)
				if f.Name == "sales.csv" {
					return CleaningOptions{RemoveDuplicates: true}, FormatExcel
				}
				return CleaningOptions{}, FormatCSV
			})

			require.Len(t, outcomes, 3)
			assert.Equal(t, []int{0, 1, 2}, calls)

			assert.ErrorIs(t, outcomes[0].Err, ErrUnsupportedFormat)
			assert.ErrorIs(t, outcomes[1].Err, ErrParseFailure)
			require.NoError(t, outcomes[2].Err)
			assert.Equal(t, "sales.xlsx", outcomes[2].Result.Export.FileName)
			assert.Equal(t, 8, outcomes[2].Result.Dataset.RowCount())
		})
	}
}

func TestRunBatch_PanicStopsOnlyThatFile(t *testing.T) {
	for _, mode := range []IsolationMode{IsolationRecover, IsolationShortCircuit} {
		t.Run(string(mode), func(t *testing.T) {
			p := newTestPipeline(mode)
			files := []UploadedFile{
				{Name: "a.csv", Data: []byte("a\n1\n")},
				{Name: "boom.csv", Data: []byte("b\n2\n")},
				{Name: "c.csv", Data: []byte("c\n3\n")},
			}

			var outcomes []Outcome
			require.NotPanics(t, func() {
				outcomes = p.RunBatch(context.Background(), files, func(_ int, f UploadedFile) (CleaningOptions, ExportFormat) {
					if f.Name == "boom.csv" {
						panic("options lookup failed")
					}
					return CleaningOptions{}, FormatCSV
				})
			})

			require.Len(t, outcomes, 3)
			require.NoError(t, outcomes[0].Err)
			assert.ErrorIs(t, outcomes[1].Err, ErrProcessingFailure)
			assert.Contains(t, outcomes[1].Err.Error(), "error processing file boom.csv")
			assert.Contains(t, outcomes[1].Err.Error(), "options lookup failed")
			assert.Nil(t, outcomes[1].Result)
			require.NoError(t, outcomes[2].Err)
			assert.Equal(t, "c\n3\n", string(outcomes[2].Result.Export.Data))
		})
	}
}

func TestRunBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []UploadedFile{{Name: "a.csv", Data: []byte("a\n1\n")}, {Name: "b.csv", Data: []byte("b\n2\n")}}
	outcomes := newTestPipeline(IsolationRecover).RunBatch(ctx, files, func(int, UploadedFile) (CleaningOptions, ExportFormat) {
		return CleaningOptions{}, FormatCSV
	})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.Nil(t, o.Result)
	}
}

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := NewPipeline(PipelineConfig{}, m)

	_, err := p.Run(context.Background(), UploadedFile{Name: "sales.csv", Data: salesCSV()}, CleaningOptions{RemoveDuplicates: true}, FormatCSV)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), UploadedFile{Name: "notes.txt", Data: []byte("x")}, CleaningOptions{}, FormatCSV)
	require.Error(t, err)
	_, err = p.Run(context.Background(), UploadedFile{Name: "report.csv", Data: reportCSV()}, CleaningOptions{FillMissing: true, FillValue: "0"}, FormatExcel)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesParsed.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesParsed.WithLabelValues("other", "unsupported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("xlsx", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.duplicatesRemoved))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.cellsFilled))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeParse("csv", nil)
		m.observeConversion(FormatCSV, nil, 0)
		m.observeCleaning(CleanReport{DuplicatesRemoved: 1})
		m.setActiveSessions(3)
		m.addExpiredSessions(1)
	})
}
