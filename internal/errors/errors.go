package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure so callers can route it without string matching.
type Kind string

const (
	// KindFetch means upstream data was unavailable or malformed after retries.
	KindFetch Kind = "FETCH"
	// KindSimulation means a single backtest run failed; siblings are unaffected.
	KindSimulation Kind = "SIMULATION"
	// KindConfiguration means the batch parameters were invalid before any work started.
	KindConfiguration Kind = "CONFIG"
	// KindStorage means the durable cache tier failed; in-memory operation continues.
	KindStorage Kind = "STORAGE"
)

// Error is a categorized error carrying the component and label it came from.
type Error struct {
	Kind       Kind
	Component  string
	Label      string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s:%s]", e.Kind, e.Component)
	if e.Label != "" {
		prefix = fmt.Sprintf("[%s:%s:%s]", e.Kind, e.Component, e.Label)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a categorized error.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap attaches a category and component to an existing error.
// Returns nil when err is nil.
func Wrap(err error, kind Kind, component, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Message: message, Underlying: err}
}

// WithLabel records the work-item label the error belongs to.
func (e *Error) WithLabel(label string) *Error {
	e.Label = label
	return e
}

// KindOf reports the category of err, or the empty Kind for uncategorized errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
