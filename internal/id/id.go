// Package id generates and propagates request identifiers.
package id

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the request identifier in and out of the API.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a random request identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s looks like an identifier a client may supply:
// non-empty, at most 64 bytes, printable ASCII without spaces.
func Valid(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}

// WithRequestID stores the identifier on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// FromContext returns the request identifier stored on ctx, or "".
func FromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
