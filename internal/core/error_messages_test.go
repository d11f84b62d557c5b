package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "unsupported format",
			err:         &FileError{FileName: "notes.txt", Err: ErrUnsupportedFormat},
			wantCode:    "FILE001",
			wantMessage: "Unsupported file format",
		},
		{
			name:        "empty file wins over parse failure",
			err:         &FileError{FileName: "a.csv", Err: parseFailure(errEmptyFile)},
			wantCode:    "FILE002",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "parse failure",
			err:         &FileError{FileName: "a.csv", Err: parseFailure(errors.New("line 3: expected 2 fields, saw 4"))},
			wantCode:    "FILE003",
			wantMessage: "The file could not be read",
		},
		{
			name:        "unknown column",
			err:         fmt.Errorf("%w: %q", ErrUnknownColumn, "zzz"),
			wantCode:    "CLN002",
			wantMessage: "A selected column does not exist in this file",
		},
		{
			name:        "empty selection",
			err:         ErrEmptySelection,
			wantCode:    "CLN001",
			wantMessage: "No columns were selected",
		},
		{
			name:        "chart not applicable",
			err:         ErrNoNumericColumns,
			wantCode:    "CHT001",
			wantMessage: "No numeric columns to chart",
		},
		{
			name:        "busy limiter",
			err:         ErrTooManyConversions,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other files",
		},
		{
			name:        "expired session",
			err:         ErrSessionNotFound,
			wantCode:    "UPL003",
			wantMessage: "Upload session not found",
		},
		{
			name:        "deadline",
			err:         context.DeadlineExceeded,
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "sentinel wins over user text in a column name",
			err:         &FileError{FileName: "a.csv", Op: OpClean, Err: fmt.Errorf("%w: %q", ErrUnknownColumn, "parse failure")},
			wantCode:    "CLN002",
			wantMessage: "A selected column does not exist in this file",
		},
		{
			name:        "sentinel wins over user text in a file name",
			err:         fmt.Errorf("%w: parse failure.csv is 900 bytes, limit 100", ErrFileTooLarge),
			wantCode:    "FILE004",
			wantMessage: "File exceeds the upload size limit",
		},
		{
			name:        "processing failure",
			err:         &FileError{FileName: "a.csv", Op: OpExport, Err: fmt.Errorf("%w: unknown column", ErrProcessingFailure)},
			wantCode:    "FILE006",
			wantMessage: "The file could not be processed",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("UNSUPPORTED FILE FORMAT"),
			wantCode:    "FILE001",
			wantMessage: "Unsupported file format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptySelection)

	expected := "No columns were selected (Code: CLN001). Select at least one column to keep"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrUnknownExportFormat,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &FileError{FileName: "data.ods", Err: ErrUnsupportedFormat}
		userErr := NewUserError(techErr)

		if userErr.Error() != "Unsupported file format" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrUnsupportedFormat) {
			t.Error("Unwrap() should expose the original error chain")
		}
	})
}
