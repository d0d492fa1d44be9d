// Package errors provides standardized error handling for the query pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Entity resolution errors.
	ErrCodeInvalidEntity        ErrorCode = "INVALID_ENTITY"
	ErrCodeAmbiguousEntity      ErrorCode = "AMBIGUOUS_ENTITY"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"

	// Query execution errors.
	ErrCodeNoFinancialData    ErrorCode = "NO_FINANCIAL_DATA"
	ErrCodeMissingPeriodData  ErrorCode = "MISSING_PERIOD_DATA"
	ErrCodeConflictingFilters ErrorCode = "CONFLICTING_FILTERS"
	ErrCodeUnsupportedIntent  ErrorCode = "UNSUPPORTED_INTENT"

	// External collaborator errors.
	ErrCodeExtractionFailure ErrorCode = "EXTRACTION_FAILURE"
	ErrCodeNLServiceError    ErrorCode = "NL_SERVICE_ERROR"
	ErrCodeNLServiceTimeout  ErrorCode = "NL_SERVICE_TIMEOUT"

	// Data provider errors.
	ErrCodeLedgerLoadFailed         ErrorCode = "LEDGER_LOAD_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewInvalidEntityError creates a non-retryable error for a name that matched
// nothing in the known universe, not even a fuzzy candidate.
func NewInvalidEntityError(field string, values []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEntity,
		Message:   fmt.Sprintf("Unknown %s", field),
		Details:   strings.Join(values, ", "),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAmbiguousEntityError creates a non-retryable error carrying the
// candidates a user must choose between.
func NewAmbiguousEntityError(field, input string, candidates []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAmbiguousEntity,
		Message:   fmt.Sprintf("Ambiguous %s '%s'", field, input),
		Details:   fmt.Sprintf("candidates: %s", strings.Join(candidates, ", ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRequiredFieldError creates a non-retryable error for an
// intent-specific required field that was absent.
func NewMissingRequiredFieldError(fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredField,
		Message:   "Required information is missing",
		Details:   strings.Join(fields, "; "),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoFinancialDataError indicates the filters were valid but the ledger
// scan returned no rows.
func NewNoFinancialDataError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoFinancialData,
		Message:   "No financial data matched the requested filters",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingPeriodDataError indicates a temporal comparison resolved fewer
// than two of the requested periods.
func NewMissingPeriodDataError(requested, found []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingPeriodData,
		Message:   "Could not retrieve data for at least 2 periods",
		Details:   fmt.Sprintf("requested: %v, found: %v", requested, found),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictingFiltersError indicates quarter and month filters in the same
// request imply different quarters.
func NewConflictingFiltersError(quarter, month string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflictingFilters,
		Message:   "Conflicting time ranges: quarter and month do not match",
		Details:   fmt.Sprintf("quarter: %s, month: %s", quarter, month),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedIntentError creates a non-retryable error for intents the
// engine has no operation for.
func NewUnsupportedIntentError(intent string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedIntent,
		Message:   "Unsupported query intent",
		Details:   fmt.Sprintf("intent: %s", intent),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionFailureError indicates the external extractor returned
// unparsable output. Recovered via the regex fallback, so retryable is false.
func NewExtractionFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailure,
		Message:   "Entity extraction returned unparsable output",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLServiceError creates a retryable error for a failed NL collaborator call.
func NewNLServiceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNLServiceError,
		Message:   fmt.Sprintf("NL service '%s' error", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNLServiceTimeoutError creates a retryable timeout error for an NL call.
func NewNLServiceTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNLServiceTimeout,
		Message:   fmt.Sprintf("NL service '%s' timeout", operation),
		Details:   "call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerLoadFailedError creates a retryable error for a failed ledger load.
func NewLedgerLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerLoadFailed,
		Message:   "Ledger data load failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err is a *StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}

// CodeOf extracts the taxonomy code, or INTERNAL for untyped errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return "INTERNAL"
}
