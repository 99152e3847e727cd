package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the engine. Handlers map these onto HTTP statuses;
// none of them should ever escape as an unhandled fault.
var (
	// ErrSchemaUnavailable is returned by every mutation while the
	// collection's schema document is unreadable. The collection is
	// effectively read-only until the schema loads.
	ErrSchemaUnavailable = errors.New("collection schema unavailable; collection is read-only")

	// ErrPermissionDenied is returned when the acting user's resolved
	// capabilities do not allow the requested action. The action is not
	// attempted against the store.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrHeaderMismatch aborts a CSV import before any row is processed.
	ErrHeaderMismatch = errors.New("csv header does not match the collection schema")
)

// FieldError is one field-level rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult aggregates rule violations across a whole document.
// Validation does not short-circuit across fields; Errors is ordered by the
// schema's field order.
type ValidationResult struct {
	Valid  bool         `json:"isValid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// ValidationError carries the aggregate result of a failed document
// validation. It is local and recoverable; nothing was sent to the store.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// WriteError wraps a store-level batch rejection. The underlying error is
// surfaced verbatim and the write is not retried; the cache keeps its
// last-known-good snapshot.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "store write failed: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }
