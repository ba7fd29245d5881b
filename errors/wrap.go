package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a *Error, its code, category and task ID are preserved.
// Otherwise a new Internal error wraps the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var coreErr *Error
	if errors.As(err, &coreErr) {
		wrapped := &Error{
			code:      coreErr.code,
			category:  coreErr.category,
			message:   message,
			cause:     err,
			retryable: coreErr.retryable,
			taskID:    coreErr.taskID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsCoreError attempts to extract a CoreError from an error chain.
// Returns nil if none is found.
func AsCoreError(err error) CoreError {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
// Non-structured errors default to not retryable.
func IsRetryable(err error) bool {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Retryable()
	}
	return false
}

// IsNotFound checks if the error is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a *Error.
func Code(err error) ErrorCode {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a *Error.
func Category(err error) ErrorCategory {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message)
}
