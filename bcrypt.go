package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher derives credentials with bcrypt. The cost is fixed at
// construction time.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher, falling back to the default
// cost when the given one is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the configured work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *BcryptHasher) HashPassword(_ context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}

	return string(b), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *BcryptHasher) ComparePasswordAndHash(_ context.Context, password, hash string) (bool, error) {
	if _, err := parseBcryptCredential(hash); err != nil {
		return false, err
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrMalformedCredential
	}
}

// NeedsRehash reports whether hash was derived with a different cost
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	c, err := parseBcryptCredential(hash)
	if err != nil {
		return true
	}
	return c.Cost != h.cost
}

var defaultHasher = NewBcryptHasher(passwordHashCost())

// HashPassword hashes with the package default bcrypt hasher
func HashPassword(password string) (string, error) {
	return defaultHasher.HashPassword(context.Background(), password)
}

// ComparePasswordAndHash compares with the package default bcrypt hasher
func ComparePasswordAndHash(password, hash string) (bool, error) {
	return defaultHasher.ComparePasswordAndHash(context.Background(), password, hash)
}

// randomHashAttempts bounds how often RandomPasswordHashWith retries
const randomHashAttempts = 3

// RandomPasswordHash is a hash of a random secret nobody knows. It is used
// as a decoy so unknown accounts cost the same to reject as known ones.
func RandomPasswordHash() (string, error) {
	return RandomPasswordHashWith(context.Background(), defaultHasher)
}

// RandomPasswordHashWith hashes a random secret with hasher, giving up
// after a few failed attempts.
func RandomPasswordHashWith(ctx context.Context, hasher PasswordHasher) (string, error) {
	var err error
	for i := 0; i < randomHashAttempts; i++ {
		var h string
		if h, err = hasher.HashPassword(ctx, uuid.NewString()); err == nil {
			return h, nil
		}
	}
	return "", errors.Wrap(err, errors.CategoryInternal, "unable to derive decoy hash")
}
