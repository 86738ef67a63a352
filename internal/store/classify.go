package store

import (
	"fmt"
	"net/http"
)

// classifyGetOrHead implements the status mapping shared by GET and
// HEAD (the latter used internally as a pre-flight probe): exactly
// 200 means the object was found, 404 means it wasn't (an expected
// NOOP, not an error), anything else is ERROR.
func classifyGetOrHead(statusCode int) Result {
	switch statusCode {
	case http.StatusOK:
		return Result{Status: OK}
	case http.StatusNotFound:
		return Result{Status: NOOP}
	default:
		return Result{Status: ERROR, Err: httpStatusError(statusCode)}
	}
}

// classifyDelete implements DELETE's status mapping: any 2xx is OK,
// 404 means there was nothing to remove (NOOP, not an error), anything
// else is ERROR.
func classifyDelete(statusCode int) Result {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Result{Status: OK}
	case statusCode == http.StatusNotFound:
		return Result{Status: NOOP}
	default:
		return Result{Status: ERROR, Err: httpStatusError(statusCode)}
	}
}

// classifyPut implements PUT's status mapping: any 2xx is OK, 409
// (Conflict) or 412 (Precondition Failed) means the store itself
// refused to overwrite an existing object (NOOP, not an error), and
// anything else is ERROR.
func classifyPut(statusCode int) Result {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Result{Status: OK}
	case statusCode == http.StatusConflict || statusCode == http.StatusPreconditionFailed:
		return Result{Status: NOOP}
	default:
		return Result{Status: ERROR, Err: httpStatusError(statusCode)}
	}
}

func httpStatusError(statusCode int) error {
	return fmt.Errorf("HTTP %d", statusCode)
}
