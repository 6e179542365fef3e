package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/engine"
	"github.com/roach88/nqm/internal/params"
	"github.com/roach88/nqm/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess   = 0 // Successful execution
	ExitUsage     = 2 // Bad arguments, unknown query or endpoint, invalid configuration
	ExitExecution = 3 // Query execution failed at the endpoint or the registry
	ExitImport    = 4 // Import or conversion failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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
// Returns ExitExecution if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitExecution
}

// executionExit classifies an engine error: caller mistakes exit with
// ExitUsage, everything else with ExitExecution.
func executionExit(err error) *ExitError {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, params.ErrMissingParameter),
		errors.Is(err, params.ErrUnknownParameter),
		errors.Is(err, params.ErrInvalidValue),
		errors.Is(err, engine.ErrUnknownEndpoint),
		errors.Is(err, engine.ErrUnknownGraph),
		errors.Is(err, engine.ErrUnsupportedLanguage),
		errors.Is(err, endpoint.ErrConfig):
		return WrapExitError(ExitUsage, "query rejected", err)
	}
	return WrapExitError(ExitExecution, "query failed", err)
}

// OutputFormatter handles JSON vs text status output for CLI commands.
// Query results are written by the format package, not through here.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Endpoint failures carry
// their category and the filtered message, never the raw payload.
func (f *OutputFormatter) Error(code string, err error) error {
	cliErr := &CLIError{Code: code, Message: err.Error()}
	var ee *engine.EndpointError
	if errors.As(err, &ee) {
		cliErr.Category = string(ee.Category)
		cliErr.Message = ee.Filtered
		cliErr.Details = map[string]string{"endpoint": ee.Endpoint, "stats_id": ee.Stats.StatsID}
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  cliErr,
		})
	}

	if cliErr.Category != "" {
		fmt.Fprintf(f.Writer, "Error [%s] %s: %s\n", code, cliErr.Category, cliErr.Message)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, cliErr.Message)
	}
	if f.Verbose && cliErr.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", cliErr.Details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
