package core

// # Error Codes Reference
//
// This file maps conversion errors to user-friendly messages with codes for
// support reference. Users can quote the code when reporting a problem.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unsupported format: Only .csv and .xlsx files can be read
//	          Patterns: "unsupported file format"
//
//	FILE002 - Empty file: The file has no header row
//	          Patterns: "empty file"
//
//	FILE003 - Parse failure: The file could not be read
//	          Patterns: "parse failure"
//
//	FILE004 - File too large: File exceeds the upload size limit
//	          Patterns: "file too large"
//
//	FILE005 - No file: No file was selected
//	          Patterns: "no file provided"
//
//	FILE006 - Processing failure: Cleaning or export failed unexpectedly
//	          Patterns: "processing failure"
//
// # Cleaning Errors (CLN001-CLN099)
//
//	CLN001 - Empty selection: No columns were selected
//	         Patterns: "empty column selection"
//
//	CLN002 - Unknown column: A selected column is not in the file
//	         Patterns: "unknown column"
//
// # Export and Chart Errors (EXP001, CHT001)
//
//	EXP001 - Unknown export format: Only CSV and Excel are offered
//	         Patterns: "unknown export format"
//
//	CHT001 - Chart not applicable: The table has no numeric column
//	         Patterns: "chart not applicable"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid options: A form field was rejected
//	         Patterns: "invalid option"
//
// # Session Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many conversions in progress
//	         Patterns: "too many concurrent conversions", "too many active sessions"
//
//	UPL003 - Session expired: Session or file not found
//	         Patterns: "session not found", "file not found in session"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Sentinel errors are matched with errors.Is before any text is inspected.
// Patterns are then matched case-insensitively with strings.Contains. In
// both passes the first match wins, so specific entries precede general
// ones. Parse errors wrap both ErrParseFailure and their cause, which is why
// "empty file" comes first.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

// errorPattern maps an error to a message. target is matched with
// errors.Is; pattern is the fallback for errors that only carry text.
type errorPattern struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		target:  ErrUnsupportedFormat,
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE001",
		},
	},
	{
		target:  errEmptyFile,
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE002",
		},
	},
	{
		target:  ErrParseFailure,
		pattern: "parse failure",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that every row has no more fields than the header and that the file is not corrupted",
			Code:    "FILE003",
		},
	},
	{
		target:  ErrFileTooLarge,
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the upload size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE004",
		},
	},
	{
		target:  ErrNoFiles,
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Select one or more .csv or .xlsx files",
			Code:    "FILE005",
		},
	},

	{
		target:  ErrProcessingFailure,
		pattern: "processing failure",
		msg: UserMessage{
			Message: "The file could not be processed",
			Action:  "Please try again or contact support with the code below",
			Code:    "FILE006",
		},
	},

	// Cleaning errors
	{
		target:  ErrEmptySelection,
		pattern: "empty column selection",
		msg: UserMessage{
			Message: "No columns were selected",
			Action:  "Select at least one column to keep",
			Code:    "CLN001",
		},
	},
	{
		target:  ErrUnknownColumn,
		pattern: "unknown column",
		msg: UserMessage{
			Message: "A selected column does not exist in this file",
			Action:  "Reload the file and pick columns from its header",
			Code:    "CLN002",
		},
	},

	// Export and chart
	{
		target:  ErrUnknownExportFormat,
		pattern: "unknown export format",
		msg: UserMessage{
			Message: "Unknown export format",
			Action:  "Choose CSV or Excel",
			Code:    "EXP001",
		},
	},
	{
		target:  ErrNoNumericColumns,
		pattern: "chart not applicable",
		msg: UserMessage{
			Message: "No numeric columns to chart",
			Action:  "Keep at least one numeric column selected",
			Code:    "CHT001",
		},
	},

	// Request errors
	{
		target:  ErrInvalidOption,
		pattern: "invalid option",
		msg: UserMessage{
			Message: "The conversion options were not accepted",
			Action:  "Check the form values and try again",
			Code:    "REQ001",
		},
	},

	// Session errors
	{
		target:  ErrTooManyConversions,
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target:  ErrTooManySessions,
		pattern: "too many active sessions",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target:  ErrSessionNotFound,
		pattern: "session not found",
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The session may have expired. Please upload the files again",
			Code:    "UPL003",
		},
	},
	{
		target:  ErrFileNotFound,
		pattern: "file not found in session",
		msg: UserMessage{
			Message: "File not found in this session",
			Action:  "The session may have expired. Please upload the files again",
			Code:    "UPL003",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Known
// sentinels are matched first so that user-supplied text inside the error,
// such as a file or column name, cannot change the result. If nothing
// matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(&FileError{FileName: "a.txt", Err: ErrUnsupportedFormat})
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ep := range errorPatterns {
		if ep.target != nil && errors.Is(err, ep.target) {
			return ep.msg
		}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a display string: "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
