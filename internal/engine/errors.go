package engine

import (
	"errors"
	"fmt"
)

// Error kinds reported by query execution. Every failure wraps exactly one
// of them so callers can classify with errors.Is.
var (
	// ErrEmptyQuery is returned for blank input before any evaluation.
	ErrEmptyQuery = errors.New("please enter a SQL query")
	// ErrUnsupportedStatement is returned for anything but SELECT.
	ErrUnsupportedStatement = errors.New("only SELECT queries are supported")
	// ErrInvalidCondition is returned when a WHERE clause cannot be parsed.
	ErrInvalidCondition = errors.New("invalid WHERE condition")
	// ErrEvaluation covers every other parse or execution failure.
	ErrEvaluation = errors.New("evaluation error")
)

// classify makes sure err carries one of the error kinds, wrapping unknown
// errors as ErrEvaluation.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrEmptyQuery, ErrUnsupportedStatement, ErrInvalidCondition, ErrEvaluation} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrEvaluation, err)
}

// Kind returns a short machine-readable name for the error kind of err, or
// "" when err is nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "EmptyQuery"
	case errors.Is(err, ErrUnsupportedStatement):
		return "UnsupportedStatement"
	case errors.Is(err, ErrInvalidCondition):
		return "InvalidCondition"
	default:
		return "EvaluationError"
	}
}
