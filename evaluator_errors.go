package resolution

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPredicate is returned for blank predicate expressions.
	ErrEmptyPredicate = errors.New("resolution: predicate must not be empty")
	// ErrPredicateNotBool is returned when a predicate yields a non-boolean.
	ErrPredicateNotBool = errors.New("resolution: predicate did not return a boolean")
	// ErrEngineUnavailable is returned when the requested engine is not
	// compiled into the binary.
	ErrEngineUnavailable = errors.New("resolution: predicate engine unavailable")
)

// PredicateError carries the engine, expression and entry that produced Err.
type PredicateError struct {
	Engine   string
	Expr     string
	Selector string
	Key      string
	Err      error
}

func (e *PredicateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("resolution: %s predicate %s", e.Engine, describeExpression(e.Expr))
	if e.Selector != "" {
		msg += fmt.Sprintf(" selector=%s key=%s", e.Selector, e.Key)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PredicateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

// wrapPredicateError attaches metadata to err. An existing PredicateError is
// completed in place rather than wrapped twice.
func wrapPredicateError(engine, expr string, entry *Entry, err error) error {
	if err == nil {
		return nil
	}

	var predErr *PredicateError
	if errors.As(err, &predErr) {
		if predErr.Engine == "" {
			predErr.Engine = engine
		}
		if predErr.Expr == "" {
			predErr.Expr = expr
		}
		if predErr.Selector == "" && entry != nil {
			predErr.Selector = entry.Selector
			predErr.Key = string(entry.Key)
		}
		return predErr
	}

	wrapped := &PredicateError{Engine: engine, Expr: expr, Err: err}
	if entry != nil {
		wrapped.Selector = entry.Selector
		wrapped.Key = string(entry.Key)
	}
	return wrapped
}
