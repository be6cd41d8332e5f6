package models

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "authentication required", Status: 401}
	ErrInternal     = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
	ErrConflict = func(msg string) *AppError {
		return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
	}

	// ErrInvalidField reports a request field whose value failed validation
	// (out of range, wrong type, unknown enum member).
	ErrInvalidField = func(field, msg string) *AppError {
		return &AppError{Code: "INVALID_FIELD", Message: msg, Field: field, Status: 422}
	}
	// ErrInvariantViolation reports a request that is individually well-formed
	// but would break a cross-entity invariant (e.g. a group referencing a
	// zone that does not exist).
	ErrInvariantViolation = func(msg string) *AppError {
		return &AppError{Code: "INVARIANT_VIOLATION", Message: msg, Status: 422}
	}
	// ErrInUse reports an attempt to delete an entity that is still
	// referenced by another (e.g. deleting a stream bound to a source).
	ErrInUse = func(msg string) *AppError {
		return &AppError{Code: "IN_USE", Message: msg, Status: 409}
	}
	// ErrUnsupportedCommand reports a stream command the target stream type
	// does not implement.
	ErrUnsupportedCommand = func(msg string) *AppError {
		return &AppError{Code: "UNSUPPORTED_COMMAND", Message: msg, Status: 422}
	}
	// ErrNotBound reports a stream command sent to a stream that is not
	// currently routed to any source.
	ErrNotBound = func(msg string) *AppError {
		return &AppError{Code: "NOT_BOUND", Message: msg, Status: 404}
	}
	// ErrDriverTimeout reports a hardware/stream driver call that exceeded
	// its bounded deadline.
	ErrDriverTimeout = func(msg string) *AppError {
		return &AppError{Code: "DRIVER_TIMEOUT", Message: msg, Status: 500}
	}
	// ErrHardwareFailure reports a hardware driver call that returned an
	// error (as opposed to timing out). Any effects already committed to
	// hardware during the same command were rolled back best-effort; when
	// that rollback did not fully succeed, a rollback-incomplete note is
	// appended to the message.
	ErrHardwareFailure = func(msg string, rolledBack bool) *AppError {
		e := &AppError{Code: "HARDWARE_FAILURE", Message: msg, Status: 500}
		if !rolledBack {
			e.Message = msg + " (rollback incomplete, state may be inconsistent with hardware)"
		}
		return e
	}
)

// PersistenceWarning is a non-fatal side channel: the in-memory state
// committed successfully but the store write failed or was retried.
// It never aborts a request and is surfaced additively alongside State.
type PersistenceWarning struct {
	Message string `json:"message"`
}
