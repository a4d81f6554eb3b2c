// Package password hashes and verifies user passwords.
package password

import (
	"errors"
	"fmt"
)

// Algorithm names accepted by New.
const (
	AlgorithmArgon2 = "argon2"
	AlgorithmBcrypt = "bcrypt"
)

var (
	// ErrMismatch is returned by Verify when the password does not match the hash.
	ErrMismatch = errors.New("password does not match hash")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher is the capability user management and login depend on.
type Hasher interface {
	// Hash returns an encoded hash carrying its own parameters and salt.
	Hash(password string) (string, error)
	// Verify returns nil when password matches hash and ErrMismatch when it does not.
	Verify(hash, password string) error
	// NeedsRehash reports whether hash was produced with other parameters than the
	// ones currently configured.
	NeedsRehash(hash string) bool
}

// New returns the hasher for algorithm with its default parameters.
func New(algorithm string) (Hasher, error) {
	switch algorithm {
	case AlgorithmArgon2, "":
		return DefaultArgon2(), nil
	case AlgorithmBcrypt:
		return DefaultBcrypt(), nil
	default:
		return nil, fmt.Errorf("unknown password hashing algorithm %q", algorithm)
	}
}
