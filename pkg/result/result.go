// Package result provides success-or-failure outcomes and combinators that fold many
// independent outcomes into one, reporting every failure instead of only the first.
package result

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Failure kinds. A Failure whose cause chain contains one of these can be classified
// with errors.Is by calling layers.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrExtraction  = errors.New("extraction failed")
	ErrDeserialize = errors.New("deserialization failed")
)

// Failure is a human-readable message with an optional underlying cause.
type Failure struct {
	Message string
	Cause   error
}

// NewFailure creates a Failure.
func NewFailure(message string, cause error) *Failure {
	return &Failure{Message: message, Cause: cause}
}

// Failuref creates a Failure of the given kind with a formatted message.
func Failuref(kind error, format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...), Cause: kind}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// LogValue 日志里带上完整的 cause 链，Error 只返回给调用方看的 Message
func (f *Failure) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("message", f.Message)}
	if f.Cause != nil {
		attrs = append(attrs, slog.String("cause", causeText(f.Cause)))
	}
	return slog.GroupValue(attrs...)
}

// causeText renders err with the causes of every nested Failure expanded.
func causeText(err error) string {
	var f *Failure
	switch e := err.(type) {
	case *Failure:
		if e.Cause == nil {
			return e.Message
		}
		return e.Message + ": " + causeText(e.Cause)
	case interface{ Unwrap() []error }:
		if !errors.As(err, &f) {
			return err.Error()
		}
		errs := e.Unwrap()
		parts := make([]string, 0, len(errs))
		for _, inner := range errs {
			parts = append(parts, causeText(inner))
		}
		return strings.Join(parts, "; ")
	case interface{ Unwrap() error }:
		if !errors.As(err, &f) || f.Cause == nil {
			return err.Error()
		}
		return err.Error() + ": " + causeText(f.Cause)
	default:
		return err.Error()
	}
}

// AsFailure converts any error into a Failure, keeping it as the cause.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Message: err.Error(), Cause: err}
}

// Result holds either a value of type T or a Failure.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok returns a successful result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail returns a failed result.
func Fail[T any](message string, cause error) Result[T] {
	return Result[T]{failure: NewFailure(message, cause)}
}

// From converts a (value, error) pair into a Result.
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Result[T]{failure: AsFailure(err)}
	}
	return Ok(value)
}

func (r Result[T]) IsSuccess() bool {
	return r.failure == nil
}

func (r Result[T]) IsFailure() bool {
	return r.failure != nil
}

// Value returns the success value. Calling it on a failed result panics.
func (r Result[T]) Value() T {
	if r.failure != nil {
		panic("result: Value called on failed result: " + r.failure.Message)
	}
	return r.value
}

// Failure returns the failure, or nil on success.
func (r Result[T]) Failure() *Failure {
	return r.failure
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}

// Unwrap returns the result as a Go (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.failure != nil {
		var zero T
		return zero, r.failure
	}
	return r.value, nil
}

// Match projects a result through exactly one of the two branches.
func Match[T, R any](r Result[T], onSuccess func(T) R, onFailure func(*Failure) R) R {
	if r.failure != nil {
		return onFailure(r.failure)
	}
	return onSuccess(r.value)
}

// Collect folds independent results into one. If any failed, the returned failure's
// message lists all failure messages as "[m1, m2, ...]" and its cause joins all causes.
// Otherwise the values are returned in their original order.
func Collect[T any](results []Result[T]) Result[[]T] {
	var failures []*Failure
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.failure != nil {
			failures = append(failures, r.failure)
			continue
		}
		values = append(values, r.value)
	}
	if len(failures) > 0 {
		return Result[[]T]{failure: Join(failures)}
	}
	return Ok(values)
}

// Join merges failures into a single failure.
func Join(failures []*Failure) *Failure {
	if len(failures) == 0 {
		return nil
	}
	messages := make([]string, len(failures))
	causes := make([]error, 0, len(failures))
	for i, f := range failures {
		messages[i] = f.Message
		if f.Cause != nil {
			causes = append(causes, f.Cause)
		}
	}
	return &Failure{
		Message: "[" + strings.Join(messages, ", ") + "]",
		Cause:   errors.Join(causes...),
	}
}
