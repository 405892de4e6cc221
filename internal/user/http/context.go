// Package http provides the admin authentication middleware.
package http

import (
	"context"

	"github.com/allisson/newsletter/internal/user/domain"
)

type userKey struct{}

// WithUser stores an authenticated user in the context.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser retrieves the authenticated user from the context.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*domain.User)
	return user, ok && user != nil
}
