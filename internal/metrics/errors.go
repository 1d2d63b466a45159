// Package metrics provides OpenTelemetry metrics for serverbook.
package metrics

import (
	"encoding/json"
	"errors"
	"os"
)

// Error type attribute values for persistence failure metrics.
const (
	ErrorNone       = "none"
	ErrorNotExist   = "not_exist"
	ErrorPermission = "permission"
	ErrorDecode     = "decode_error"
	ErrorUnknown    = "unknown"
)

// ClassifyIOError returns the error type attribute for a failed store read
// or write.
func ClassifyIOError(err error) string {
	if err == nil {
		return ErrorNone
	}
	if errors.Is(err, os.ErrNotExist) {
		return ErrorNotExist
	}
	if errors.Is(err, os.ErrPermission) {
		return ErrorPermission
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return ErrorDecode
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return ErrorDecode
	}
	return ErrorUnknown
}
