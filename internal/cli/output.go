package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command succeeded
	ExitFailure      = 1 // Rejected import, invalid working set, failed save or failed scenarios
	ExitCommandError = 2 // Bad flags, unknown ids, unreadable files or stores that will not open
)

// Error codes carried in JSON error responses.
const (
	CodeMode           = "E_MODE"
	CodeRead           = "E_READ"
	CodeWrite          = "E_WRITE"
	CodeSave           = "E_SAVE"
	CodeImport         = "E_IMPORT"
	CodeExport         = "E_EXPORT"
	CodeShape          = "E_SHAPE"
	CodeSync           = "E_SYNC"
	CodeReconcile      = "E_RECONCILE"
	CodeReplicas       = "E_REPLICAS"
	CodePrune          = "E_PRUNE"
	CodeAmount         = "E_AMOUNT"
	CodePayment        = "E_PAYMENT"
	CodeInvoice        = "E_INVOICE"
	CodeNotFound       = "E_NOT_FOUND"
	CodeScenarioPath   = "E_SCENARIO_PATH"
	CodeScenarioFailed = "E_SCENARIO_FAILED"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command's output.
type CLIResponse struct {
	Status   string      `json:"status"` // "ok" or "error"
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Error    *CLIError   `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"` // one of the Code* constants
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	return f.SuccessWithWarnings(data, nil)
}

// SuccessWithWarnings outputs a successful result that carries warnings,
// such as an import whose checksum did not match. Text mode prints one
// "warning:" line per message before the result.
func (f *OutputFormatter) SuccessWithWarnings(data interface{}, warnings []string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:   "ok",
			Data:     data,
			Warnings: warnings,
		})
	}

	f.Warn(warnings)
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Warn prints warnings in text mode. JSON output carries them in the
// response instead.
func (f *OutputFormatter) Warn(warnings []string) {
	if f.Format == "json" {
		return
	}
	for _, msg := range warnings {
		fmt.Fprintf(f.Writer, "warning: %s\n", msg)
	}
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled. It writes
// to ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
