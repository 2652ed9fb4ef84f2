// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the codenav CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// consistent exit codes for different error categories.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewFormatError(
//	    "Cannot read graph container",
//	    "The file at .codenav/graph.bin does not start with a recognized magic header",
//	    "Re-run codenav index to rebuild it",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: Cannot read graph container
//	// Cause: The file at .codenav/graph.bin does not start with a recognized magic header
//	// Fix:   Re-run codenav index to rebuild it
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//
// # Exit Codes
//
//   - ExitSuccess (0): Successful execution
//   - ExitUsage (1): CLI usage error (bad flags, missing arguments)
//   - ExitFormat (2): I/O or graph-container format error
//   - ExitExtractor (3): Source extraction/parse error
//   - ExitEmptyResult (4): A query or traversal yielded zero results under --fail-on-empty,
//     or a trace/path start name matches no node
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitUsage indicates a CLI usage error: bad flags, missing or
	// contradictory arguments.
	ExitUsage = 1

	// ExitFormat indicates an I/O or graph-container format error: the file
	// is missing, unreadable, or its framing/codec is unrecognized.
	ExitFormat = 2

	// ExitExtractor indicates a source-file extraction error that could not
	// be treated as a per-file warning (e.g. every file in the batch failed).
	ExitExtractor = 3

	// ExitEmptyResult indicates a query or traversal produced zero results
	// while --fail-on-empty was set, or that a trace/path start name matches
	// no node.
	ExitEmptyResult = 4

	// ExitInternal indicates an internal error (a bug, an unexpected panic).
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior
// and optionally wraps an underlying error for error chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	Err error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUsageError creates a CLI usage error with exit code ExitUsage.
//
// Use this for bad flag combinations, missing required arguments, or
// invalid flag values caught before any work begins. Usage errors
// typically do not wrap an underlying error.
func NewUsageError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUsage}
}

// NewFormatError creates a graph-container format error with exit code
// ExitFormat.
//
// Use this for errors reading or writing the persisted graph: missing
// files, unrecognized magic bytes, a codec tag nothing in the binary
// understands, or a stale/corrupt sidecar index cache.
func NewFormatError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitFormat, Err: err}
}

// NewParseError creates a source-extraction error with exit code
// ExitExtractor.
//
// Use this when extraction fails badly enough to abort the run outright
// (as opposed to a single file's parse error, which index collects as a
// per-file warning and continues past).
func NewParseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitExtractor, Err: err}
}

// NewQueryError creates a zero-results error with exit code ExitEmptyResult.
//
// Use this when a query, trace, or path command produced no results and
// the caller passed --fail-on-empty, or when a trace or path start name
// matches no node. Query errors typically do not wrap an underlying error.
func NewQueryError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitEmptyResult}
}

// NewPermissionError creates a permission-denied error. It reuses
// ExitFormat since, from the CLI's perspective, an unreadable or
// unwritable graph path is a format-layer failure: the container could
// not be produced or consumed.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitFormat, Err: err}
}

// NewInternalError creates an internal error with exit code ExitInternal.
//
// Use this for unexpected errors that indicate bugs in the program, such
// as assertion failures or unhandled error cases.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// Color output respects the NO_COLOR environment variable and can be
// explicitly disabled with the noColor parameter. Empty Cause or Fix
// fields are omitted.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitInternal. A nil err is a no-op and the
// function returns; for any other err it never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
