// Package session provides read-only lookup of the calling user from a
// bearer token. This core never mutates session state.
package session

import (
	"context"

	"mediaref/internal/core"
)

type contextKey struct{}

// Lookup resolves an API token to a user.
type Lookup interface {
	UserForToken(token string) (*core.User, bool)
}

// StaticLookup is a fixed token-to-user table resolved from configuration.
type StaticLookup struct {
	users map[string]core.User
}

// NewStaticLookup builds a lookup from a token -> user-id map.
func NewStaticLookup(tokens map[string]string) *StaticLookup {
	users := make(map[string]core.User, len(tokens))
	for token, userID := range tokens {
		if token == "" || userID == "" {
			continue
		}
		users[token] = core.User{ID: userID}
	}
	return &StaticLookup{users: users}
}

// UserForToken resolves a token to its user.
func (l *StaticLookup) UserForToken(token string) (*core.User, bool) {
	user, ok := l.users[token]
	if !ok {
		return nil, false
	}
	return &user, true
}

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (*core.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*core.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
