package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/resilience"
)

// Kind classifies why a source failed.
type Kind string

const (
	KindTimeout       Kind = "timeout"
	KindUnavailable   Kind = "unavailable"
	KindLayoutChanged Kind = "layout_changed"
	KindCircuitOpen   Kind = "circuit_open"
)

// Sentinels for errors.Is matching against *Error values.
var (
	ErrTimeout       = eris.New("adapter: timeout")
	ErrUnavailable   = eris.New("adapter: source unavailable")
	ErrLayoutChanged = eris.New("adapter: page layout changed")
	ErrCircuitOpen   = eris.New("adapter: circuit open")
)

// Error is a classified source failure.
type Error struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	src := e.Source
	if src == "" {
		src = "adapter"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", src, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", src, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrLayoutChanged:
		return e.Kind == KindLayoutChanged
	case ErrCircuitOpen:
		return e.Kind == KindCircuitOpen
	}
	return false
}

// NewError builds a classified error for source.
func NewError(source string, kind Kind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

// IsRetryable reports whether another attempt may succeed: only timeouts and
// unavailable sources qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// KindOf returns the failure kind of err. Unclassified errors are reported as
// timeout when they carry a deadline, unavailable otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return KindCircuitOpen
	}
	if resilience.IsTimeout(err) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnavailable
}

// Classify returns err as an *Error attributed to source. Errors already
// classified keep their kind and gain the source if they lack one.
func Classify(source string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Source == "" {
			return &Error{Source: source, Kind: ae.Kind, Err: ae.Err}
		}
		return err
	}
	return &Error{Source: source, Kind: KindOf(err), Err: err}
}
