package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long an issued token stays valid
const DefaultTokenTTL = 60 * time.Minute

// Clock returns the current time
type Clock func() time.Time

// TokenService issues and verifies session tokens
type TokenService interface {
	TokenValidator
	Issue(subject SubjectKey) (string, time.Time, error)
	Verify(tokenString string) (SubjectKey, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenServiceOptions configure NewTokenService. SigningKey is required.
type TokenServiceOptions struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
	Logger     Logger
	Clock      Clock
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
	clock      Clock
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance. The signing key is
// copied so later changes to the caller's slice have no effect.
func NewTokenService(opts TokenServiceOptions) (*TokenServiceImpl, error) {
	if len(opts.SigningKey) == 0 {
		return nil, errors.New("token signing key is required", errors.CategoryBadInput)
	}

	if opts.TTL < 0 {
		return nil, errors.New("token TTL must be non-negative", errors.CategoryBadInput)
	}

	ts := &TokenServiceImpl{
		signingKey: append([]byte(nil), opts.SigningKey...),
		ttl:        opts.TTL,
		issuer:     opts.Issuer,
		logger:     opts.Logger,
		clock:      opts.Clock,
	}

	if ts.ttl == 0 {
		ts.ttl = DefaultTokenTTL
	}

	if ts.logger == nil {
		ts.logger = defLogger{}
	}

	if ts.clock == nil {
		ts.clock = time.Now
	}

	return ts, nil
}

// WithClock returns a copy of the service that reads time from clock
func (ts *TokenServiceImpl) WithClock(clock Clock) *TokenServiceImpl {
	cp := *ts
	if clock == nil {
		clock = time.Now
	}
	cp.clock = clock
	return &cp
}

// TTL returns the configured token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for subject that expires TTL from now. The returned
// time is the expiry as encoded in the token.
func (ts *TokenServiceImpl) Issue(subject SubjectKey) (string, time.Time, error) {
	if !subject.Valid() {
		return "", time.Time{}, ErrTokenSubject
	}

	now := ts.clock()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   FormatSubject(subject),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, claims.Expires(), nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify checks the token and returns the subject it names
func (ts *TokenServiceImpl) Verify(tokenString string) (SubjectKey, error) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return 0, err
	}

	return claims.SubjectKey()
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		mapped := mapTokenError(err)
		ts.logger.Debug("TokenService validate failed token=%s code=%s", tokenFingerprint(tokenString), ErrorTextCode(mapped))
		return nil, mapped
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if _, err := claims.SubjectKey(); err != nil {
		ts.logger.Debug("TokenService validate rejected subject token=%s", tokenFingerprint(tokenString))
		return nil, err
	}

	return claims, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

// tokenFingerprint is a short, non reversible tag for a token so logs can
// correlate requests without carrying the bearer value.
func tokenFingerprint(token string) string {
	if token == "" {
		return "-"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
