package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm identifies the one way function used to derive a credential
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// bcrypt hashes are always 60 chars: $2a$NN$ + 22 chars salt + 31 chars hash
const (
	bcryptEncodedLen = 60
	bcryptSaltLen    = 22
)

// Credential is the parsed view of a stored password hash. It never holds
// the plaintext.
type Credential struct {
	Algorithm Algorithm
	// Version is the argon2 version or the bcrypt minor revision byte.
	Version int
	// Cost is the bcrypt work factor.
	Cost int
	// Memory in KiB, Iterations and Parallelism apply to argon2id.
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte

	encoded string
}

// String returns the encoded form as it is persisted
func (c Credential) String() string {
	return c.encoded
}

// ParseCredential splits an encoded credential into its parts. Unknown
// algorithms, versions or broken encodings return ErrMalformedCredential.
func ParseCredential(encoded string) (Credential, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return parseArgon2Credential(encoded)
	case strings.HasPrefix(encoded, "$2"):
		return parseBcryptCredential(encoded)
	default:
		return Credential{}, ErrMalformedCredential
	}
}

func parseBcryptCredential(encoded string) (Credential, error) {
	if len(encoded) != bcryptEncodedLen {
		return Credential{}, ErrMalformedCredential
	}

	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return Credential{}, ErrMalformedCredential
	}

	// $2a$10$<salt><hash>
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || len(parts[3]) != bcryptEncodedLen-7 {
		return Credential{}, ErrMalformedCredential
	}

	version := 0
	if rev := parts[1]; len(rev) == 2 {
		version = int(rev[1])
	}

	return Credential{
		Algorithm: AlgorithmBcrypt,
		Version:   version,
		Cost:      cost,
		Salt:      []byte(parts[3][:bcryptSaltLen]),
		Hash:      []byte(parts[3][bcryptSaltLen:]),
		encoded:   encoded,
	}, nil
}

func parseArgon2Credential(encoded string) (Credential, error) {
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return Credential{}, ErrMalformedCredential
	}

	c := Credential{Algorithm: AlgorithmArgon2id, encoded: encoded}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &c.Version); err != nil {
		return Credential{}, ErrMalformedCredential
	}

	if c.Version != argon2.Version {
		return Credential{}, ErrMalformedCredential
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &c.Memory, &c.Iterations, &c.Parallelism); err != nil {
		return Credential{}, ErrMalformedCredential
	}

	if c.Memory == 0 || c.Iterations == 0 || c.Parallelism == 0 {
		return Credential{}, ErrMalformedCredential
	}

	var err error
	if c.Salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(c.Salt) == 0 {
		return Credential{}, ErrMalformedCredential
	}

	if c.Hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(c.Hash) == 0 {
		return Credential{}, ErrMalformedCredential
	}

	return c, nil
}

func encodeArgon2Credential(p Argon2Params, salt, hash []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}
