package auth

import (
	"strconv"
)

// SubjectKey is the stable identifier a token names. It maps to the
// numeric primary key of the user record.
type SubjectKey int64

// String returns the canonical text form of the key.
func (k SubjectKey) String() string {
	return FormatSubject(k)
}

// Valid reports whether the key can be issued.
func (k SubjectKey) Valid() bool {
	return k > 0
}

// FormatSubject encodes a key as base 10 text. This is the only encoder used
// when signing tokens and ParseSubject is the only decoder.
func FormatSubject(k SubjectKey) string {
	return strconv.FormatInt(int64(k), 10)
}

// ParseSubject decodes the text produced by FormatSubject. Anything that
// would not re-encode to the exact same text is rejected, so "+7", "007"
// and " 7" are not aliases of "7".
func ParseSubject(raw string) (SubjectKey, error) {
	if raw == "" {
		return 0, ErrTokenSubject
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrTokenSubject
	}

	key := SubjectKey(id)
	if !key.Valid() || FormatSubject(key) != raw {
		return 0, ErrTokenSubject
	}

	return key, nil
}
