package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes returned to the shell.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a run or validation failed (contract violations, halted run)
	ExitCommandError = 2 // the command itself was unusable (bad paths, missing database)
)

// ExitError carries a process exit code alongside the message, so failed
// runs and broken invocations exit differently.
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

// NewExitError builds an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to an underlying error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, treating anything
// untyped as ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Printer writes command results either as plain text or as a JSON
// envelope. Verbose diagnostics always target the error stream so JSON on
// stdout stays parseable.
type Printer struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Envelope is the JSON shape every command emits: a status plus either the
// payload or the failure, never both.
type Envelope struct {
	Status string   `json:"status"`
	Data   any      `json:"data,omitempty"`
	Fail   *Failure `json:"error,omitempty"`
}

// Failure names what went wrong. Code is one of the stable codes the
// pipeline stage errors carry, for example "CONTRACT_VIOLATIONS".
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OK emits a successful result in the configured format.
func (p *Printer) OK(data any) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Writer).Encode(Envelope{Status: "ok", Data: data})
	}
	fmt.Fprintln(p.Writer, data)
	return nil
}

// Fail emits a failure in the configured format. Details print in text
// mode only under Verbose.
func (p *Printer) Fail(code, message string, details any) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Writer).Encode(Envelope{
			Status: "error",
			Fail:   &Failure{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(p.Writer, "Error [%s]: %s\n", code, message)
	if p.Verbose && details != nil {
		fmt.Fprintf(p.Writer, "Details: %v\n", details)
	}
	return nil
}

// Verbosef prints a diagnostic line when verbose mode is on.
func (p *Printer) Verbosef(format string, args ...any) {
	if !p.Verbose {
		return
	}
	w := p.ErrWriter
	if w == nil {
		w = p.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
