package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(r context.Context, identity Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok && raw != nil
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the Session from the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok && raw != nil
}

// GetRouterIdentity extracts the identity the auth middleware stored in the
// request locals
func GetRouterIdentity(c router.Context, key string) (Identity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(Identity)
	return identity, ok
}

// CurrentSubject returns the subject key of the authenticated caller
func CurrentSubject(c router.Context, key string) (SubjectKey, bool) {
	identity, ok := GetRouterIdentity(c, key)
	if !ok {
		return 0, false
	}
	return identity.ID(), identity.ID().Valid()
}
