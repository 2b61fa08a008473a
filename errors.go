package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodePasswordMismatch    = "PASSWORD_MISMATCH"
	TextCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	TextCodeAlreadyRegistered   = "ALREADY_REGISTERED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodePasswordTooLong     = "PASSWORD_TOO_LONG"
	TextCodeMalformedCredential = "MALFORMED_CREDENTIAL"
	TextCodeUnauthorized        = "UNAUTHORIZED"
	TextCodeTokenMissing        = "TOKEN_MISSING"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenSignature      = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenSubject        = "TOKEN_SUBJECT_INVALID"
	TextCodeSessionDecodeError  = "SESSION_DECODE_ERROR"
	TextCodeDataParseError      = "DATA_PARSE_ERROR"
	TextCodeHasherBusy          = "HASHER_BUSY"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword the password does not match the stored credential
var ErrMismatchedHashAndPassword = errors.New("password does not match credential", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedCredential the stored credential can not be parsed
var ErrMalformedCredential = errors.New("stored credential is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeMalformedCredential).
	WithCode(errors.CodeUnauthorized)

// ErrAlreadyRegistered the lookup key already has a credential
var ErrAlreadyRegistered = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyRegistered).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString password should not be empty
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooLong password exceeds what the hashing algorithm accepts
var ErrPasswordTooLong = errors.New("password is too long", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(errors.CodeBadRequest)

// ErrTokenMissing no token found in the request
var ErrTokenMissing = errors.New("token missing", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed token could not be parsed
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired token is past its expiration
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature token signature does not match
var ErrTokenSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSubject token subject is absent or not a valid key
var ErrTokenSubject = errors.New("token subject is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSubject).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to build a session from claims
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError).
	WithCode(errors.CodeBadRequest)

// ErrHasherBusy no derivation slot was available in time
var ErrHasherBusy = errors.New("password hasher is busy", errors.CategoryRateLimit).
	WithTextCode(TextCodeHasherBusy).
	WithCode(http.StatusServiceUnavailable)

// ErrInvalidCredentials is the only login failure clients ever see.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the only token failure clients ever see.
var ErrUnauthorized = errors.New("could not validate credentials", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

var authFailureCodes = map[string]bool{
	TextCodeInvalidCreds:        true,
	TextCodePasswordMismatch:    true,
	TextCodeIdentityNotFound:    true,
	TextCodeMalformedCredential: true,
	TextCodeUnauthorized:        true,
	TextCodeTokenMissing:        true,
	TextCodeTokenMalformed:      true,
	TextCodeTokenExpired:        true,
	TextCodeTokenSignature:      true,
	TextCodeTokenSubject:        true,
	TextCodeSessionDecodeError:  true,
}

// ErrorTextCode returns the text code of a rich error or an empty string.
func ErrorTextCode(err error) string {
	var richErr *errors.Error
	if err == nil || !errors.As(err, &richErr) {
		return ""
	}
	return richErr.TextCode
}

// IsAuthFailure reports whether err means "could not establish an identity"
// as opposed to an internal fault.
func IsAuthFailure(err error) bool {
	return authFailureCodes[ErrorTextCode(err)]
}

// InvalidCredentials collapses every login failure variant into
// ErrInvalidCredentials. Other errors are returned unchanged.
func InvalidCredentials(err error) error {
	if err == nil {
		return nil
	}
	if IsAuthFailure(err) {
		return ErrInvalidCredentials
	}
	return err
}

// Unauthorized collapses every token and identity resolution failure into
// ErrUnauthorized. Other errors are returned unchanged.
func Unauthorized(err error) error {
	if err == nil {
		return nil
	}
	if IsAuthFailure(err) {
		return ErrUnauthorized
	}
	return err
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if ErrorTextCode(err) == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if ErrorTextCode(err) == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
