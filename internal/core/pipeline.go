package core

// pipeline.go ties the four stages together for one file:
//
//	parse -> clean (dedupe, select, fill) -> chart projection -> serialize
//
// Run is a pure function of (UploadedFile, CleaningOptions, ExportFormat);
// nothing is shared between files. RunBatch processes files sequentially and
// isolates failures: an error or panic in one file is recorded in its
// Outcome and the next file proceeds.

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/JonMunkholm/fileconv/internal/logging"
)

// IsolationMode controls how a failing file is contained.
type IsolationMode string

const (
	// IsolationRecover also converts a panic raised while processing a file
	// into an error for that file: ErrParseFailure while parsing,
	// ErrProcessingFailure afterwards.
	IsolationRecover IsolationMode = "recover"

	// IsolationShortCircuit stops a file at its first returned error and
	// lets panics out of Parse, Run and Process. RunBatch still records
	// them against the failing file and carries on.
	IsolationShortCircuit IsolationMode = "shortcircuit"
)

// ParseIsolationMode maps a configuration string to an IsolationMode,
// ignoring case.
func ParseIsolationMode(s string) (IsolationMode, error) {
	switch m := IsolationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case IsolationRecover, IsolationShortCircuit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown isolation mode %q", s)
	}
}

// Result is the outcome of running one file through the pipeline.
type Result struct {
	FileName string
	Dataset  *Dataset
	Report   CleanReport
	Chart    *Projection // nil unless requested and applicable
	Export   *Export
	Duration time.Duration
}

// Outcome pairs a batch file with its result or error.
type Outcome struct {
	FileName string
	Result   *Result
	Err      error
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Isolation            IsolationMode
	RejectEmptySelection bool
}

// Pipeline runs uploaded files through parse, clean, chart and serialize.
type Pipeline struct {
	isolation IsolationMode
	cleaner   Cleaner
	metrics   *Metrics
}

// NewPipeline creates a Pipeline. metrics may be nil.
func NewPipeline(cfg PipelineConfig, metrics *Metrics) *Pipeline {
	if cfg.Isolation == "" {
		cfg.Isolation = IsolationRecover
	}
	return &Pipeline{
		isolation: cfg.Isolation,
		cleaner:   Cleaner{RejectEmptySelection: cfg.RejectEmptySelection},
		metrics:   metrics,
	}
}

// Isolation returns the configured isolation mode.
func (p *Pipeline) Isolation() IsolationMode { return p.isolation }

// Parse runs the parse stage under the pipeline's isolation mode.
func (p *Pipeline) Parse(ctx context.Context, file UploadedFile) (ds *Dataset, err error) {
	defer p.contain(ctx, file.Name, OpRead, &err)
	ds, err = Parse(ctx, file)
	p.metrics.observeParse(file.Extension(), err)
	return ds, err
}

// Run processes one file end to end.
func (p *Pipeline) Run(ctx context.Context, file UploadedFile, opts CleaningOptions, format ExportFormat) (*Result, error) {
	ds, err := p.Parse(ctx, file)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, file.Name, ds, opts, format)
}

// Process runs the clean, chart and serialize stages on an already parsed
// Dataset, mutating it in place. Pass a clone to keep the original.
func (p *Pipeline) Process(ctx context.Context, fileName string, ds *Dataset, opts CleaningOptions, format ExportFormat) (res *Result, err error) {
	defer p.contain(ctx, fileName, OpClean, &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := logging.ForFile(ctx, fileName)

	report, err := p.cleaner.Clean(ds, opts)
	if err != nil {
		p.metrics.observeConversion(format, err, time.Since(start))
		return nil, &FileError{FileName: fileName, Op: OpClean, Err: err}
	}
	if report.DedupeApplied {
		logger.Info("duplicates removed", "rows_removed", report.DuplicatesRemoved)
	}

	res = &Result{
		FileName: fileName,
		Dataset:  ds,
		Report:   report,
	}
	if opts.ShowChart {
		if proj, ok := Project(ds); ok {
			res.Chart = proj
		}
	}

	export, err := Serialize(ds, format, fileName)
	if err != nil {
		p.metrics.observeConversion(format, err, time.Since(start))
		return nil, &FileError{FileName: fileName, Op: OpExport, Err: err}
	}
	res.Export = export
	res.Duration = time.Since(start)

	p.metrics.observeConversion(format, nil, res.Duration)
	p.metrics.observeCleaning(report)
	logger.Info("processing completed",
		"format", format.String(),
		"rows", ds.RowCount(),
		"columns", ds.ColumnCount(),
		"bytes", len(export.Data),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// RunBatch processes files one after another. optionsFor supplies the
// options and export format for each file. A failing file never stops the
// batch.
func (p *Pipeline) RunBatch(ctx context.Context, files []UploadedFile, optionsFor func(i int, f UploadedFile) (CleaningOptions, ExportFormat)) []Outcome {
	outcomes := make([]Outcome, 0, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{FileName: file.Name, Err: err})
			continue
		}
		res, err := p.runIsolated(ctx, i, file, optionsFor)
		if err != nil {
			logging.ForFile(ctx, file.Name).Warn("file skipped", "error", err)
		}
		outcomes = append(outcomes, Outcome{FileName: file.Name, Result: res, Err: err})
	}
	return outcomes
}

// runIsolated runs one batch file, turning a panic that escaped the
// pipeline stages into that file's error.
func (p *Pipeline) runIsolated(ctx context.Context, i int, file UploadedFile, optionsFor func(i int, f UploadedFile) (CleaningOptions, ExportFormat)) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(ctx, file.Name, OpProcess, r)
		}
	}()
	opts, format := optionsFor(i, file)
	return p.Run(ctx, file, opts, format)
}

// contain converts a panic into a FileError when the mode is
// IsolationRecover. It must be deferred directly.
func (p *Pipeline) contain(ctx context.Context, fileName, op string, errp *error) {
	if p.isolation != IsolationRecover {
		return
	}
	if r := recover(); r != nil {
		*errp = panicError(ctx, fileName, op, r)
	}
}

// panicError logs a recovered panic and wraps it for the file: a parse
// failure while reading, a processing failure in any later stage.
func panicError(ctx context.Context, fileName, op string, r any) error {
	logging.ForFile(ctx, fileName).Error("panic while processing file",
		"panic", r,
		"stage", op,
		"stack", string(debug.Stack()),
	)
	cause := fmt.Errorf("%v", r)
	if op == OpRead {
		return &FileError{FileName: fileName, Op: op, Err: parseFailure(cause)}
	}
	return &FileError{FileName: fileName, Op: op, Err: fmt.Errorf("%w: %w", ErrProcessingFailure, cause)}
}
