package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetSubject() SubjectKey
	GetTokenID() string
	GetIssuer() string
	GetIssuedAt() time.Time
	GetExpiration() time.Time
}

// TokenResponse is what a successful login hands back to the client
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Register(ctx context.Context, email, username, password string) (Identity, error)
	Login(ctx context.Context, email, password string) (TokenResponse, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
	IdentityFromToken(ctx context.Context, token string) (Identity, error)
	ChangePassword(ctx context.Context, subject SubjectKey, current, next string) error
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() SubjectKey
	Username() string
	Email() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetHasher() HasherOptions
}

// StoredCredential is what the store keeps for a lookup key. The hash is
// opaque to the store.
type StoredCredential struct {
	Subject      SubjectKey
	PasswordHash string
}

// Account is a new registration ready to persist
type Account struct {
	Email        string
	Username     string
	PasswordHash string
}

// IdentityStore is the storage contract the authenticator depends on.
// Lookups that find nothing return ErrIdentityNotFound.
type IdentityStore interface {
	FindCredentialByLookupKey(ctx context.Context, email string) (*StoredCredential, error)
	FindIdentityBySubjectKey(ctx context.Context, subject SubjectKey) (Identity, error)
	CreateAccount(ctx context.Context, account Account) (Identity, error)
	UpdateCredential(ctx context.Context, subject SubjectKey, passwordHash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards everything
func NoopLogger() Logger {
	return noopLogger{}
}
