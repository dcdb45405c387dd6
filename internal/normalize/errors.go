package normalize

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a row could not be normalized.
type ErrorKind string

const (
	KindMissingField ErrorKind = "missing_field"
	KindPrice        ErrorKind = "price"
	KindDuration     ErrorKind = "duration"
	KindTimezone     ErrorKind = "timezone"
	KindStops        ErrorKind = "stops"
	KindInvalidValue ErrorKind = "invalid_value"
)

// NormalizationError rejects one raw row. It never aborts the batch.
type NormalizationError struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize: %s %s: %v", e.Field, e.Kind, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// KindOf returns the kind of a NormalizationError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ne *NormalizationError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return ""
}

func reject(kind ErrorKind, field string, err error) *NormalizationError {
	return &NormalizationError{Kind: kind, Field: field, Err: err}
}
