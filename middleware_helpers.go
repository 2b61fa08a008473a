package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-flashcards-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// sessionClaims lets a verified Session travel through jwtware
type sessionClaims struct {
	Session
}

func (s sessionClaims) Subject() string {
	return FormatSubject(s.GetSubject())
}

func (s sessionClaims) Expires() time.Time {
	return s.GetExpiration()
}

// SessionFromClaims recovers the Session behind claims produced by
// RouteAuthenticator or by the TokenService.
func SessionFromClaims(claims jwtware.AuthClaims) (Session, bool) {
	switch v := claims.(type) {
	case sessionClaims:
		return v.Session, true
	case AuthClaims:
		session, err := sessionFromAuthClaims(v)
		if err != nil {
			return nil, false
		}
		return session, true
	default:
		return nil, false
	}
}

// ContextEnricherAdapter stores the verified session in the standard context
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	session, ok := SessionFromClaims(claims)
	if !ok {
		return c
	}
	return WithSessionContext(c, session)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
