package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/fileconv/internal/config"
	"github.com/JonMunkholm/fileconv/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Service is the entry point used by the web layer. It owns the pipeline,
// the conversion limiter and the session store.
type Service struct {
	cfg      *config.Config
	pipeline *Pipeline
	limiter  *ConversionLimiter
	sessions *SessionStore
	metrics  *Metrics
}

// NewService creates a Service from cfg. Metrics are registered with reg
// when it is non-nil.
func NewService(cfg *config.Config, reg prometheus.Registerer) (*Service, error) {
	mode, err := ParseIsolationMode(cfg.Pipeline.Isolation)
	if err != nil {
		return nil, err
	}

	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}

	return &Service{
		cfg: cfg,
		pipeline: NewPipeline(PipelineConfig{
			Isolation:            mode,
			RejectEmptySelection: cfg.Pipeline.RejectEmptySelection,
		}, metrics),
		limiter:  NewConversionLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		sessions: NewSessionStore(cfg.Session.TTL, cfg.Session.MaxSessions, metrics),
		metrics:  metrics,
	}, nil
}

// PreviewRows is the number of rows shown in table previews.
func (s *Service) PreviewRows() int { return s.cfg.Pipeline.PreviewRows }

// CreateSession parses every file and stores the batch under a new session.
// A file that fails to parse is kept with its error; the others proceed.
func (s *Service) CreateSession(ctx context.Context, files []UploadedFile) (*Session, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	entries := make([]*SessionFile, len(files))
	failed := 0
	for i, f := range files {
		entry := &SessionFile{Index: i, Name: f.Name, Size: len(f.Data)}
		if err := ctx.Err(); err != nil {
			entry.Err = err
		} else {
			entry.Dataset, entry.Err = s.pipeline.Parse(ctx, f)
		}
		if entry.Err != nil {
			failed++
			logging.ForFile(ctx, f.Name).Warn("file rejected", "error", entry.Err)
		}
		entries[i] = entry
	}

	sess, err := s.sessions.Create(entries)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("session created",
		"session_id", sess.ID,
		"client_ip", ClientIPFromContext(ctx),
		"files", len(files),
		"failed", failed,
	)
	return sess, nil
}

// Session returns a live session.
func (s *Service) Session(id string) (*Session, error) {
	return s.sessions.Get(id)
}

// ConvertSessionFile runs the cleaning and export stages on a copy of a
// session file, leaving the stored Dataset untouched.
func (s *Service) ConvertSessionFile(ctx context.Context, sessionID string, idx int, opts CleaningOptions, format ExportFormat) (*Result, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	file, err := sess.File(idx)
	if err != nil {
		return nil, err
	}
	if !file.OK() {
		return nil, file.Err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.pipeline.Process(ctx, file.Name, file.Dataset.Clone(), s.withDefaults(opts), format)
}

// Convert processes a single upload without storing it.
func (s *Service) Convert(ctx context.Context, file UploadedFile, opts CleaningOptions, format ExportFormat) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.pipeline.Run(ctx, file, s.withDefaults(opts), format)
}

// ConvertBatch processes every file with the same options. Failures are
// reported per file.
func (s *Service) ConvertBatch(ctx context.Context, files []UploadedFile, opts CleaningOptions, format ExportFormat) ([]Outcome, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	opts = s.withDefaults(opts)
	return s.pipeline.RunBatch(ctx, files, func(int, UploadedFile) (CleaningOptions, ExportFormat) {
		return opts, format
	}), nil
}

// RenderChart draws the result's chart projection with the configured size.
func (s *Service) RenderChart(res *Result, format ChartFormat) ([]byte, error) {
	if res == nil || res.Chart == nil {
		return nil, ErrNoNumericColumns
	}
	return RenderChart(res.Chart, ChartOptions{
		Title:  res.FileName,
		Width:  s.cfg.Pipeline.ChartWidth,
		Height: s.cfg.Pipeline.ChartHeight,
		Format: format,
	})
}

// LimiterStatus reports conversion slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// SessionCount returns the number of stored sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Len()
}

// WaitForConversions blocks until in-flight conversions finish or ctx ends.
func (s *Service) WaitForConversions(ctx context.Context) error {
	start := time.Now()
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		slog.Warn("conversions still active at shutdown",
			"active", s.limiter.ActiveCount(),
			"waited_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
	return nil
}

// withDefaults applies the configured fill value unless one was chosen.
func (s *Service) withDefaults(opts CleaningOptions) CleaningOptions {
	if opts.FillMissing && opts.FillValue == "" && !opts.FillValueSet {
		opts.FillValue = s.cfg.Pipeline.DefaultFillValue
	}
	return opts
}
