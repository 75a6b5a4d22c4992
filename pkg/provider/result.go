package provider

import "strings"

// DefaultFailureMessage is used when a provider fails without a user-facing message.
const DefaultFailureMessage = "❌ Service momentanément indisponible. Réessayez plus tard."

// Result is the normalized outcome of a content provider call. A failed
// result always carries a non-empty message that is safe to show the user.
type Result[T any] struct {
	OK          bool
	Value       T
	UserMessage string
}

func Success[T any](value T) Result[T] {
	return Result[T]{OK: true, Value: value}
}

func Failure[T any](userMessage string) Result[T] {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		userMessage = DefaultFailureMessage
	}

	return Result[T]{UserMessage: userMessage}
}

// Unwrap returns the value and whether the call succeeded.
func (r Result[T]) Unwrap() (T, bool) {
	return r.Value, r.OK
}
