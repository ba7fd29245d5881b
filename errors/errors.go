package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// CoreError is the interface for all structured errors in taskflow.
// It extends the standard error interface with the context the
// dispatcher and API layer need for handling decisions.
type CoreError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry/handling decisions.
	Category() ErrorCategory

	// Retryable returns true if the operation may succeed on retry.
	Retryable() bool

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of CoreError.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	retryable *bool // nil means use default based on category
	timestamp time.Time
	taskID    string // related task, if applicable
}

// Ensure Error implements CoreError and json.Marshaler.
var (
	_ CoreError      = (*Error)(nil)
	_ json.Marshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// TaskID returns the related task ID, if set.
func (e *Error) TaskID() string {
	return e.taskID
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code      ErrorCode     `json:"code"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Cause     string        `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Timestamp string        `json:"timestamp,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Retryable: e.Retryable(),
		TaskID:    e.taskID,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithTaskID sets the related task ID.
func WithTaskID(id string) Option {
	return func(e *Error) {
		e.taskID = id
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// NotFound creates a not found error for a task ID.
func NotFound(taskID string, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID)}, opts...)
	return New(ErrCodeNotFound, fmt.Sprintf("task %s not found", taskID), opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// IllegalTransition creates an illegal transition error.
func IllegalTransition(taskID, from, to string, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID)}, opts...)
	return New(ErrCodeIllegalTransition, fmt.Sprintf("illegal transition %s -> %s", from, to), opts...)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string, opts ...Option) *Error {
	return New(ErrCodeUnauthorized, message, opts...)
}

// ExecutionFailed creates an execution failure error for a task.
func ExecutionFailed(taskID, reason string, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID)}, opts...)
	return New(ErrCodeExecutionFailed, fmt.Sprintf("task %s failed: %s", taskID, reason), opts...)
}

// PersistenceFailed creates a persistence failure error for a task.
func PersistenceFailed(taskID string, cause error, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID), WithCause(cause)}, opts...)
	return New(ErrCodePersistenceFailed, fmt.Sprintf("failed to persist outcome of task %s", taskID), opts...)
}

// ClaimRace creates a claim race error. Observing one means the store's
// claim is not atomic; the dispatcher treats it as fatal.
func ClaimRace(taskID string, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID)}, opts...)
	return New(ErrCodeClaimRace, fmt.Sprintf("task %s claimed without exclusive ownership", taskID), opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}
