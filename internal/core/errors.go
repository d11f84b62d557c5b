package core

import (
	"errors"
	"fmt"
)

// Pipeline error kinds. Callers match them with errors.Is.
var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrParseFailure        = errors.New("parse failure")
	ErrEmptySelection      = errors.New("empty column selection")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrUnknownExportFormat = errors.New("unknown export format")
	ErrNoNumericColumns    = errors.New("chart not applicable: no numeric columns")
	ErrSessionNotFound     = errors.New("session not found")
	ErrFileNotFound        = errors.New("file not found in session")
	ErrTooManySessions     = errors.New("too many active sessions")
	ErrNoFiles             = errors.New("no file provided")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidOption       = errors.New("invalid option")
	ErrProcessingFailure   = errors.New("processing failure")
)

// Stages a FileError can come from.
const (
	OpRead    = "reading"
	OpClean   = "cleaning"
	OpExport  = "exporting"
	OpProcess = "processing" // stage unknown
)

// FileError reports a failure for one file of a batch.
type FileError struct {
	FileName string
	Op       string // OpRead when empty
	Err      error
}

func (e *FileError) Error() string {
	op := e.Op
	if op == "" {
		op = OpRead
	}
	return fmt.Sprintf("error %s file %s: %v", op, e.FileName, e.Err)
}

// Cause returns the underlying error text without the file name.
func (e *FileError) Cause() string {
	return e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// parseFailure wraps the underlying cause as ErrParseFailure.
func parseFailure(cause error) error {
	return fmt.Errorf("%w: %w", ErrParseFailure, cause)
}
