package middleware

import (
	"context"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/models"
)

type callerKey struct{}

// Caller is the identity a request was authenticated as.
type Caller struct {
	Address models.Address
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && c.Address != ""
}

// Authorization returns the capability handed to token operations: the
// authenticated caller and nobody else.
func Authorization(ctx context.Context) auth.Context {
	if c, ok := CallerFrom(ctx); ok {
		return auth.As(c.Address)
	}
	return auth.None
}
