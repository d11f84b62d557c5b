// Package core provides the tabular conversion logic: parsing uploaded CSV
// and Excel files, cleaning them, projecting them for a chart and encoding
// them for download.
//
// The package has no HTTP dependencies and can be used by web handlers,
// CLI tools or tests without modification.
//
// # Pipeline
//
// Every file goes through the same fixed stages:
//
//  1. [Parse] reads the bytes into a [Dataset], choosing the reader from the
//     case-sensitive file extension ("csv" or "xlsx"). Delimited text passes
//     through BOM stripping and UTF-8 sanitization first.
//  2. [Cleaner.Clean] applies duplicate removal, column selection and
//     missing-value fill, in that order, according to [CleaningOptions].
//  3. [Project] picks the first two numeric columns for a chart when asked.
//  4. [Serialize] encodes the cleaned table as CSV or a single-sheet workbook.
//
// [Pipeline] runs the stages for one file or a batch. In a batch a failing
// file is reported in its [Outcome] and the remaining files still run.
//
// # Sessions
//
// The web flow parses a batch once and keeps it in a [SessionStore]. Each
// conversion clones the stored Dataset, so options can be changed and the
// file re-exported without uploading it again. Idle sessions are removed by
// [Service.StartSessionSweeper].
//
// # Error Handling
//
// Pipeline errors wrap the sentinels in errors.go and are matched with
// errors.Is. [MapError] turns any error into a [UserMessage] with a support
// code:
//
//   - FILE001-FILE005: file errors (format, empty, parse, size)
//   - CLN001-CLN002: cleaning errors (selection)
//   - EXP001, CHT001: export and chart
//   - UPL002-UPL005: busy, expired session, cancelled, timeout
package core
