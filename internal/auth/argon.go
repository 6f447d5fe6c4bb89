package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters sized for a small self-hosted server. Verification
// re-reads them from the stored hash, so these can be raised later
// without invalidating existing accounts.
const (
	hashMemoryKiB   = 64 * 1024
	hashIterations  = 3
	hashParallelism = 4
	hashSaltLen     = 16
	hashKeyLen      = 32

	// Hashing cost scales with input size. Cap it so a huge password in a
	// signup request cannot burn CPU for free.
	maxPasswordLen = 1024
)

// HashPassword derives an argon2id hash and returns it in the standard
// $argon2id$v=..$m=..,t=..,p=..$salt$hash encoding.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > maxPasswordLen {
		return "", errors.New("password exceeds maximum length")
	}

	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashIterations, hashMemoryKiB, hashParallelism, hashKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemoryKiB, hashIterations, hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks password against an encoded hash. Malformed
// hashes verify as false rather than erroring, so callers cannot leak
// which half of the comparison was bad.
func VerifyPassword(encoded, password string) (bool, error) {
	if len(password) > maxPasswordLen {
		return false, nil
	}

	salt, want, params, err := parseEncodedHash(encoded)
	if err != nil {
		return false, nil
	}

	//nolint:gosec // key length comes from the decoded hash, always small
	got := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.parallelism, uint32(len(want)))

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

type hashParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func parseEncodedHash(encoded string) (salt, key []byte, params hashParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, params, errors.New("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, params, errors.New("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism); err != nil {
		return nil, nil, params, fmt.Errorf("invalid parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("invalid salt encoding: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("invalid hash encoding: %w", err)
	}

	return salt, key, params, nil
}
