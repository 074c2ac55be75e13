package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/grovekit/grove/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // process completed
	ExitFailure      = 1 // process aborted or items failed permanently
	ExitCommandError = 2 // command error (bad flags, database not found, bad job file)
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
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON envelope for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report renders a process report in the configured format.
func (f *OutputFormatter) Report(r *engine.Report) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   reportJSON(r),
		})
	}
	return r.Render(f.Writer)
}

// Success outputs a successful non-report result.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// ReportData is the JSON projection of a process report.
type ReportData struct {
	Process string     `json:"process"`
	Token   string     `json:"token"`
	State   string     `json:"state"`
	Steps   []StepData `json:"steps"`
}

// StepData is the JSON projection of one step's outcome.
type StepData struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
	Failures  []FailureData `json:"failures,omitempty"`
}

// FailureData is the JSON projection of one permanent item failure.
type FailureData struct {
	Target   string `json:"target"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

func reportJSON(r *engine.Report) ReportData {
	data := ReportData{
		Process: r.Process,
		Token:   r.Token,
		State:   string(r.State),
		Steps:   make([]StepData, 0, len(r.Steps)),
	}
	for _, step := range r.Steps {
		sd := StepData{
			Name:      step.Name,
			Status:    string(step.Status),
			Succeeded: step.Succeeded,
			Failed:    len(step.Failures),
		}
		if step.Err != nil {
			sd.Error = step.Err.Error()
		}
		for _, f := range step.Failures {
			sd.Failures = append(sd.Failures, FailureData{
				Target:   f.Target.String(),
				Error:    f.Err.Error(),
				Attempts: f.Attempts,
			})
		}
		data.Steps = append(data.Steps, sd)
	}
	return data
}
