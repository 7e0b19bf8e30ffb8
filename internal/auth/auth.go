// Package auth resolves request credentials to the user that owns them.
package auth

import (
	"context"
	"errors"

	"github.com/runelite/api.runelite.net/internal/model"
)

// ErrUnauthenticated is returned for missing, malformed or unknown tokens.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Authenticator maps a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.UserID, error)
}

type userContextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserFrom extracts the authenticated user from ctx.
func UserFrom(ctx context.Context) (model.UserID, bool) {
	id, ok := ctx.Value(userContextKey{}).(model.UserID)
	return id, ok
}
