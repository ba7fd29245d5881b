// Package errors provides the structured error taxonomy for taskflow.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: temporary failures where retry may succeed
//   - Permanent: failures where retry will not help (invalid input, not found)
//   - Resource: exhaustion issues (rate limits)
//   - Internal: unexpected errors or invariant violations (claim race, panic)
//
// # Error Codes
//
// Each error carries a code identifying the failure:
//
//   - NOT_FOUND: lookup against a missing task id
//   - INVALID_INPUT: malformed input rejected at the boundary
//   - ILLEGAL_TRANSITION: requested status edge not in the lifecycle graph
//   - EXECUTION_FAILED: the executor returned or raised a failure
//   - PERSISTENCE_FAILED: a store write failed after execution
//   - CLAIM_RACE: a claimed task was not exclusively owned (store bug)
//   - And more...
//
// # Usage
//
// Create a new error:
//
//	err := errors.NotFound(taskID)
//	err := errors.ExecutionFailed(taskID, "connection refused")
//
// Wrap an existing error:
//
//	err := errors.Wrap(dbErr, "update task", errors.WithTaskID(id))
//
// Inspect errors:
//
//	if errors.Is(err, errors.ErrCodeNotFound) { ... }
//	if errors.IsRetryable(err) { ... }
package errors
