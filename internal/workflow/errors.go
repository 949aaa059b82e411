package workflow

import (
	"errors"
)

// Kind classifies workflow failures.
type Kind string

const (
	// KindSourceFailure is recorded in the bundle and never returned.
	KindSourceFailure Kind = "source_failure"
	// KindAnalysisProvider is absorbed by the analysis fallback and only
	// visible as the enhancement status.
	KindAnalysisProvider Kind = "analysis_provider_failure"
	KindPrecondition     Kind = "precondition_failed"
	KindPersistence      Kind = "persistence_failure"
	KindConfiguration    Kind = "configuration_failure"
)

// Error is a classified workflow failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error formats as "<kind>: <cause>".
func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Configuration marks a startup configuration error.
func Configuration(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

func precondition(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

func persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
