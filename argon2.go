package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters
type Argon2Params struct {
	Memory      uint32 `json:"memory" mapstructure:"memory"`
	Iterations  uint32 `json:"iterations" mapstructure:"iterations"`
	Parallelism uint8  `json:"parallelism" mapstructure:"parallelism"`
	SaltLength  uint32 `json:"salt_length" mapstructure:"salt_length"`
	KeyLength   uint32 `json:"key_length" mapstructure:"key_length"`
}

// DefaultArgon2Params 64 MiB, one pass, four lanes.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

func (p Argon2Params) withDefaults() Argon2Params {
	if p.Memory == 0 {
		p.Memory = DefaultArgon2Params.Memory
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultArgon2Params.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultArgon2Params.Parallelism
	}
	if p.SaltLength == 0 {
		p.SaltLength = DefaultArgon2Params.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultArgon2Params.KeyLength
	}
	return p
}

// Argon2Hasher derives credentials with argon2id and encodes them in the
// PHC string format.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates an argon2id hasher, zero fields take defaults
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params.withDefaults()}
}

// Params returns the configured parameters
func (h *Argon2Hasher) Params() Argon2Params {
	return h.params
}

func (h *Argon2Hasher) HashPassword(_ context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return encodeArgon2Credential(h.params, salt, key), nil
}

// ComparePasswordAndHash recomputes the key with the parameters stored in
// hash, not the configured ones.
func (h *Argon2Hasher) ComparePasswordAndHash(_ context.Context, password, hash string) (bool, error) {
	c, err := parseArgon2Credential(hash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), c.Salt, c.Iterations, c.Memory, c.Parallelism, uint32(len(c.Hash)))

	return subtle.ConstantTimeCompare(key, c.Hash) == 1, nil
}

// NeedsRehash reports whether hash was derived with other parameters
func (h *Argon2Hasher) NeedsRehash(hash string) bool {
	c, err := parseArgon2Credential(hash)
	if err != nil {
		return true
	}
	return c.Memory != h.params.Memory ||
		c.Iterations != h.params.Iterations ||
		c.Parallelism != h.params.Parallelism ||
		uint32(len(c.Hash)) != h.params.KeyLength
}
