// Package failsoft models collaborator results that may have degraded to a
// fallback value instead of failing.
package failsoft

// Result holds either a successful value or a fallback value together with the
// reason the call degraded.
type Result[T any] struct {
	Value  T
	Reason string // Empty when the call succeeded
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degrade wraps the fallback value for a failed call.
func Degrade[T any](fallback T, reason string) Result[T] {
	if reason == "" {
		reason = "unknown failure"
	}
	return Result[T]{Value: fallback, Reason: reason}
}

// FromError degrades to fallback when err is non-nil, otherwise returns v.
func FromError[T any](v T, err error, fallback T) Result[T] {
	if err != nil {
		return Degrade(fallback, err.Error())
	}
	return OK(v)
}

// Degraded reports whether the value is a fallback.
func (r Result[T]) Degraded() bool {
	return r.Reason != ""
}
