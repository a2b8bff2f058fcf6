package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // unclassified failure
	ExitCommandError = 2 // config, store setup or invalid input
	ExitNotFound     = 3
	ExitNotCapable   = 4
	ExitConflict     = 5 // another claim won
	ExitUnavailable  = 6 // transient store fault; the outcome may be unknown
)

// ExitError carries the process exit code for a failed command.
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

// domainExitError maps the error kind of a use-case failure to its exit code.
func domainExitError(message string, err error) *ExitError {
	code := ExitFailure
	switch domainerrors.Kind(err) {
	case domainerrors.KindValidation:
		code = ExitCommandError
	case domainerrors.KindNotFound:
		code = ExitNotFound
	case domainerrors.KindAuthorization:
		code = ExitNotCapable
	case domainerrors.KindConflict:
		code = ExitConflict
	case domainerrors.KindTransient:
		code = ExitUnavailable
	}
	return WrapExitError(code, message, err)
}

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// write renders data as JSON, or as the text line when format is "text".
func write(w io.Writer, format string, data any, text string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
