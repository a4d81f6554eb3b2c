package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 hashes with argon2id and encodes results in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
type Argon2 struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var _ Hasher = Argon2{}

// maxArgon2Memory bounds the memory a stored hash may ask Verify to allocate (KiB).
const maxArgon2Memory = 1 << 20

// DefaultArgon2 returns the RFC 9106 second recommended parameter set.
func DefaultArgon2() Argon2 {
	return Argon2{Time: 3, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

func (a Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, a.Time, a.Memory, a.Threads, a.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (a Argon2) Verify(hash, password string) error {
	params, salt, key, err := decodeArgon2(hash)
	if err != nil {
		return err
	}
	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrMismatch
	}
	return nil
}

func (a Argon2) NeedsRehash(hash string) bool {
	params, salt, key, err := decodeArgon2(hash)
	if err != nil {
		return true
	}
	return params.Time != a.Time ||
		params.Memory != a.Memory ||
		params.Threads != a.Threads ||
		uint32(len(key)) != a.KeyLen ||
		uint32(len(salt)) != a.SaltLen
}

func decodeArgon2(hash string) (Argon2, []byte, []byte, error) {
	var params Argon2

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if params.Time == 0 || params.Threads == 0 {
		return params, nil, nil, fmt.Errorf("%w: zero time or parallelism", ErrMalformedHash)
	}
	if params.Memory < 8*uint32(params.Threads) || params.Memory > maxArgon2Memory {
		return params, nil, nil, fmt.Errorf("%w: memory %d KiB out of range", ErrMalformedHash, params.Memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return params, salt, key, nil
}
