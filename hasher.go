package auth

import (
	"context"
	"time"
)

// DefaultBcryptCost is the work factor used when none is configured
const DefaultBcryptCost = 12

// PasswordHasher turns a plaintext into a storable credential and checks a
// plaintext against one. A mismatch is (false, nil); a credential that can
// not be read is (false, ErrMalformedCredential).
type PasswordHasher interface {
	HashPassword(ctx context.Context, password string) (string, error)
	ComparePasswordAndHash(ctx context.Context, password, hash string) (bool, error)
}

// RehashChecker is implemented by hashers that can tell when a stored
// credential was derived with outdated parameters.
type RehashChecker interface {
	NeedsRehash(hash string) bool
}

// HasherOptions configure NewPasswordHasher
type HasherOptions struct {
	Algorithm  Algorithm    `json:"algorithm" mapstructure:"algorithm"`
	BcryptCost int          `json:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	Argon2     Argon2Params `json:"argon2" mapstructure:"argon2"`
	// MaxConcurrent bounds simultaneous derivations, zero means unbounded.
	MaxConcurrent int `json:"max_concurrent" mapstructure:"max_concurrent"`
	// AcquireTimeout bounds the wait for a derivation slot.
	AcquireTimeout time.Duration `json:"acquire_timeout" mapstructure:"acquire_timeout"`
}

// CredentialHasher derives new credentials with the configured algorithm
// and verifies stored credentials with whichever algorithm produced them.
type CredentialHasher struct {
	primary Algorithm
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

var (
	_ PasswordHasher = (*CredentialHasher)(nil)
	_ RehashChecker  = (*CredentialHasher)(nil)
	_ PasswordHasher = (*BcryptHasher)(nil)
	_ PasswordHasher = (*Argon2Hasher)(nil)
)

// NewCredentialHasher builds the dispatching hasher
func NewCredentialHasher(opts HasherOptions) *CredentialHasher {
	primary := opts.Algorithm
	if primary != AlgorithmArgon2id {
		primary = AlgorithmBcrypt
	}

	return &CredentialHasher{
		primary: primary,
		bcrypt:  NewBcryptHasher(opts.BcryptCost),
		argon2:  NewArgon2Hasher(opts.Argon2),
	}
}

// NewPasswordHasher returns a CredentialHasher, wrapped in a BoundedHasher
// when opts.MaxConcurrent is set.
func NewPasswordHasher(opts HasherOptions) PasswordHasher {
	h := NewCredentialHasher(opts)
	if opts.MaxConcurrent <= 0 {
		return h
	}
	return NewBoundedHasher(h, int64(opts.MaxConcurrent), opts.AcquireTimeout)
}

// Algorithm returns the algorithm used for new credentials
func (h *CredentialHasher) Algorithm() Algorithm {
	return h.primary
}

func (h *CredentialHasher) HashPassword(ctx context.Context, password string) (string, error) {
	if h.primary == AlgorithmArgon2id {
		return h.argon2.HashPassword(ctx, password)
	}
	return h.bcrypt.HashPassword(ctx, password)
}

func (h *CredentialHasher) ComparePasswordAndHash(ctx context.Context, password, hash string) (bool, error) {
	c, err := ParseCredential(hash)
	if err != nil {
		return false, err
	}

	switch c.Algorithm {
	case AlgorithmArgon2id:
		return h.argon2.ComparePasswordAndHash(ctx, password, hash)
	default:
		return h.bcrypt.ComparePasswordAndHash(ctx, password, hash)
	}
}

// NeedsRehash is true when hash uses another algorithm or other parameters
func (h *CredentialHasher) NeedsRehash(hash string) bool {
	c, err := ParseCredential(hash)
	if err != nil || c.Algorithm != h.primary {
		return true
	}

	if h.primary == AlgorithmArgon2id {
		return h.argon2.NeedsRehash(hash)
	}
	return h.bcrypt.NeedsRehash(hash)
}
