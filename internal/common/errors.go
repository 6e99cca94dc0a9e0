// Package common holds the error taxonomy and logger shared across the pipeline.
package common

import (
	"errors"
	"fmt"
)

// File-level failures abort an import; row-level ones are counted.
var (
	// File level.
	ErrExtractionFailure  = errors.New("extraction failure")
	ErrPasswordRequired   = errors.New("password required")
	ErrEncryption         = errors.New("unsupported encryption")
	ErrFormatUnrecognized = errors.New("format not recognized")
	ErrUnsupportedSource  = errors.New("unsupported source")
	ErrStore              = errors.New("store failure")

	// Row level.
	ErrRowValidation   = errors.New("row validation failure")
	ErrDateUnparseable = errors.New("date unparseable")
	ErrAmountAmbiguous = errors.New("amount ambiguous")
	ErrAmountInvalid   = errors.New("amount invalid")
	ErrMissingFields   = errors.New("too few fields")
	ErrExtraFields     = errors.New("too many fields")
	ErrMalformedRow    = errors.New("malformed row")
	ErrRowProcessing   = errors.New("row processing failed")
)

// RowError describes why one row was not accepted.
type RowError struct {
	Row    int
	Kind   error
	Reason string
}

func (e *RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return e.Reason
}

func (e *RowError) Unwrap() error {
	return e.Kind
}

// NewRowError builds a RowError with a formatted reason.
func NewRowError(row int, kind error, format string, args ...any) *RowError {
	return &RowError{Row: row, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the user-facing message of err, or err.Error().
func UserMessage(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.UserMessage
	}
	return err.Error()
}
