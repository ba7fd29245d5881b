package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: database connection drop, poll loop hiccup.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, task not found, illegal transition.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion.
	// Examples: API rate limiting, connection pool exhausted.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or invariant
	// violations. Examples: claim race, recovered panic.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the failure scenarios of the task core.
const (
	// Boundary errors
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"          // Task does not exist
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"      // Malformed or invalid input
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION" // Requested status edge not legal
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"       // API key missing or wrong
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"       // Client exceeded request budget

	// Processing errors
	ErrCodeExecutionFailed   ErrorCode = "EXECUTION_FAILED"   // Executor returned or raised a failure
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED" // Store write failed after execution
	ErrCodeClaimRace         ErrorCode = "CLAIM_RACE"         // Claimed task was not exclusively owned
	ErrCodeTimeout           ErrorCode = "TIMEOUT"            // Operation timed out
	ErrCodeCanceled          ErrorCode = "CANCELED"           // Operation was canceled

	// Infrastructure errors
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Backing store or bus unavailable
	ErrCodeStoreClosed ErrorCode = "STORE_CLOSED" // Store used after Close
	ErrCodeInternal    ErrorCode = "INTERNAL"     // Unexpected internal error
	ErrCodePanic       ErrorCode = "PANIC"        // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable:
		return CategoryTransient

	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeIllegalTransition,
		ErrCodeUnauthorized, ErrCodeCanceled, ErrCodeExecutionFailed,
		ErrCodeStoreClosed:
		return CategoryPermanent

	case ErrCodeRateLimited:
		return CategoryResource

	case ErrCodePersistenceFailed, ErrCodeClaimRace, ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeNotFound:          "task not found",
	ErrCodeInvalidInput:      "invalid input provided",
	ErrCodeIllegalTransition: "illegal status transition",
	ErrCodeUnauthorized:      "authentication required",
	ErrCodeRateLimited:       "rate limit exceeded",
	ErrCodeExecutionFailed:   "task execution failed",
	ErrCodePersistenceFailed: "failed to persist task outcome",
	ErrCodeClaimRace:         "task claim was not exclusive",
	ErrCodeTimeout:           "operation timed out",
	ErrCodeCanceled:          "operation canceled",
	ErrCodeUnavailable:       "backing service unavailable",
	ErrCodeStoreClosed:       "store is closed",
	ErrCodeInternal:          "internal error",
	ErrCodePanic:             "recovered from panic",
}

// Description returns the human-readable description for the code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
