package auth

import (
	"fmt"
	"time"
)

var _ Session = &SessionObject{}

// SessionObject is the verified view of a token. It only exists after the
// signature, expiry and subject checks have passed.
type SessionObject struct {
	Subject        SubjectKey `json:"subject"`
	TokenID        string     `json:"token_id,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpirationDate time.Time  `json:"expiration_date"`
}

func (s *SessionObject) GetSubject() SubjectKey {
	return s.Subject
}

func (s *SessionObject) GetTokenID() string {
	return s.TokenID
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() time.Time {
	return s.ExpirationDate
}

// ExpiresIn is the remaining lifetime relative to now
func (s *SessionObject) ExpiresIn(now time.Time) time.Duration {
	if !now.Before(s.ExpirationDate) {
		return 0
	}
	return s.ExpirationDate.Sub(now)
}

func (s SessionObject) String() string {
	return fmt.Sprintf(
		"sub=%s jti=%s iss=%s iat=%s exp=%s",
		s.Subject,
		s.TokenID,
		s.Issuer,
		s.IssuedAt.Format(time.RFC3339),
		s.ExpirationDate.Format(time.RFC3339),
	)
}

// sessionFromAuthClaims creates a SessionObject from verified claims
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToParseData
	}

	subject, err := claims.SubjectKey()
	if err != nil {
		return nil, err
	}

	issuer := ""
	if jwtClaims, ok := claims.(*JWTClaims); ok {
		issuer = jwtClaims.RegisteredClaims.Issuer
	}

	return &SessionObject{
		Subject:        subject,
		TokenID:        claims.TokenID(),
		Issuer:         issuer,
		IssuedAt:       claims.IssuedAt(),
		ExpirationDate: claims.Expires(),
	}, nil
}
