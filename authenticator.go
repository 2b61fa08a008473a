package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// TokenTypeBearer is the token_type returned on login
const TokenTypeBearer = "bearer"

type Auther struct {
	store          IdentityStore
	hasher         PasswordHasher
	tokenService   TokenService
	tokenValidator TokenValidator
	logger         Logger
	activitySink   ActivitySink
	clock          Clock

	decoyMu   sync.Mutex
	decoyHash string
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. It fails when the config
// carries no signing key.
func NewAuthenticator(store IdentityStore, opts Config) (*Auther, error) {
	if store == nil {
		return nil, errors.New("identity store is required", errors.CategoryBadInput)
	}

	tokenService, err := NewTokenService(TokenServiceOptions{
		SigningKey: []byte(opts.GetSigningKey()),
		TTL:        opts.GetTokenExpiration(),
		Issuer:     opts.GetIssuer(),
		Logger:     defLogger{},
	})
	if err != nil {
		return nil, err
	}

	return &Auther{
		store:        store,
		hasher:       NewPasswordHasher(opts.GetHasher()),
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		clock:        time.Now,
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		cp := *ts
		cp.logger = logger
		s.tokenService = &cp
	}
	return s
}

// WithHasher replaces the password hasher
func (s *Auther) WithHasher(hasher PasswordHasher) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithTokenService replaces the token service
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithClock sets the clock used for events and, when the token service
// supports it, for issuing and verifying tokens.
func (s *Auther) WithClock(clock Clock) *Auther {
	if clock == nil {
		clock = time.Now
	}
	s.clock = clock
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		s.tokenService = ts.WithClock(clock)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets a custom token validator.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Hasher returns the password hasher used by this Authenticator
func (s *Auther) Hasher() PasswordHasher {
	return s.hasher
}

// Register creates an account for email. An email that already has a
// credential fails with ErrAlreadyRegistered.
func (s *Auther) Register(ctx context.Context, email, username, password string) (Identity, error) {
	email = NormalizeEmail(email)
	username = getUsername(strings.TrimSpace(username), email)

	if _, err := s.store.FindCredentialByLookupKey(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, ErrIdentityNotFound) {
		s.logger.Error("Register lookup failed: %v", err)
		return nil, err
	}

	hash, err := s.hasher.HashPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	identity, err := s.store.CreateAccount(ctx, Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegistered, identity.ID(), nil)

	return identity, nil
}

// Login checks the password for email and issues a token. Every way the
// check can fail returns ErrInvalidCredentials; only internal faults
// surface as other errors.
func (s *Auther) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	email = NormalizeEmail(email)

	cred, err := s.store.FindCredentialByLookupKey(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			s.logger.Error("Login credential lookup failed: %v", err)
			return TokenResponse{}, err
		}
		// unknown accounts pay for a full verification too
		if decoy := s.decoy(ctx); decoy != "" {
			if _, derr := s.hasher.ComparePasswordAndHash(ctx, password, decoy); derr != nil && !IsAuthFailure(derr) {
				return TokenResponse{}, derr
			}
		}
		return TokenResponse{}, s.loginFailed(ctx, 0, ErrIdentityNotFound)
	}

	ok, err := s.hasher.ComparePasswordAndHash(ctx, password, cred.PasswordHash)
	if err != nil {
		if !IsAuthFailure(err) {
			return TokenResponse{}, err
		}
		s.logger.Error("Login stored credential unreadable subject=%s", cred.Subject)
		return TokenResponse{}, s.loginFailed(ctx, cred.Subject, err)
	}

	if !ok {
		return TokenResponse{}, s.loginFailed(ctx, cred.Subject, ErrMismatchedHashAndPassword)
	}

	token, expiresAt, err := s.tokenService.Issue(cred.Subject)
	if err != nil {
		s.logger.Error("Login failed to issue token subject=%s: %v", cred.Subject, err)
		return TokenResponse{}, err
	}

	s.maybeRehash(ctx, cred, password)

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, cred.Subject, map[string]any{
		"expires_at": expiresAt,
	})

	return TokenResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// ChangePassword replaces the credential of subject after checking the
// current password. A wrong current password is ErrInvalidCredentials.
func (s *Auther) ChangePassword(ctx context.Context, subject SubjectKey, current, next string) error {
	identity, err := s.store.FindIdentityBySubjectKey(ctx, subject)
	if err != nil {
		return InvalidCredentials(err)
	}

	cred, err := s.store.FindCredentialByLookupKey(ctx, identity.Email())
	if err != nil {
		return InvalidCredentials(err)
	}

	ok, err := s.hasher.ComparePasswordAndHash(ctx, current, cred.PasswordHash)
	if err != nil {
		return InvalidCredentials(err)
	}

	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.HashPassword(ctx, next)
	if err != nil {
		return err
	}

	if err := s.store.UpdateCredential(ctx, subject, hash); err != nil {
		s.logger.Error("ChangePassword update failed subject=%s: %v", subject, err)
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventPasswordChanged, subject, nil)

	return nil
}

// SessionFromToken verifies raw and returns the session it describes. The
// returned error is the specific failure; collapse it with Unauthorized
// before showing it to a client.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed code=%s", ErrorTextCode(err))
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if session == nil {
		return nil, ErrUnableToDecodeSession
	}

	identity, err := s.store.FindIdentityBySubjectKey(ctx, session.GetSubject())
	if err != nil {
		s.logger.Debug("IdentityFromSession subject=%s: %v", session.GetSubject(), err)
		return nil, err
	}

	return identity, nil
}

// IdentityFromToken verifies raw and resolves the identity it names. Any
// token or lookup failure is ErrUnauthorized.
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	session, err := s.SessionFromToken(raw)
	if err != nil {
		return nil, Unauthorized(err)
	}

	identity, err := s.IdentityFromSession(ctx, session)
	if err != nil {
		return nil, Unauthorized(err)
	}

	return identity, nil
}

func (s *Auther) loginFailed(ctx context.Context, subject SubjectKey, reason error) error {
	s.emitAuthEvent(ctx, ActivityEventLoginFailure, subject, map[string]any{
		"reason": ErrorTextCode(reason),
	})
	return InvalidCredentials(reason)
}

// decoy returns the cached decoy hash, deriving it on first use. A failed
// derivation is not cached so a later login retries it.
func (s *Auther) decoy(ctx context.Context) string {
	s.decoyMu.Lock()
	defer s.decoyMu.Unlock()

	if s.decoyHash != "" {
		return s.decoyHash
	}

	h, err := RandomPasswordHashWith(context.WithoutCancel(ctx), s.hasher)
	if err == nil {
		s.decoyHash = h
		return h
	}

	s.logger.Warn("Login decoy hash failed code=%s", ErrorTextCode(err))

	if h, err = RandomPasswordHash(); err != nil {
		return ""
	}
	return h
}

func (s *Auther) maybeRehash(ctx context.Context, cred *StoredCredential, password string) {
	rc, ok := s.hasher.(RehashChecker)
	if !ok || !rc.NeedsRehash(cred.PasswordHash) {
		return
	}

	hash, err := s.hasher.HashPassword(ctx, password)
	if err != nil {
		s.logger.Warn("Login rehash failed subject=%s code=%s", cred.Subject, ErrorTextCode(err))
		return
	}

	if err := s.store.UpdateCredential(ctx, cred.Subject, hash); err != nil {
		s.logger.Warn("Login rehash store failed subject=%s: %v", cred.Subject, err)
	}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, subject SubjectKey, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Subject:    subject,
		Metadata:   metadata,
		OccurredAt: s.clock(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
