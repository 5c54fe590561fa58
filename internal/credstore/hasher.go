// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptySecret is returned when attempting to hash an empty secret.
var ErrEmptySecret = oops.Code("CRED_EMPTY_SECRET").Errorf("secret cannot be empty")

// dummyHash is verified against when an account does not exist, so the
// response time of a failed authentication does not reveal whether the
// key or the secret was wrong. It is not a real credential and matches
// no secret.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Hasher derives and verifies argon2id secret hashes in PHC string
// format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
type Hasher struct{}

// NewHasher creates a Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash produces an argon2id PHC hash of the secret with a fresh random
// salt.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("CRED_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(secret), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether the secret matches the encoded hash, using a
// constant-time comparison. Returns an error only for malformed hashes.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, oops.Code("CRED_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return false, oops.Code("CRED_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}
	if threads > 255 {
		return false, oops.Code("CRED_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("CRED_INVALID_HASH").Wrap(err)
	}

	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("CRED_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(secret), salt, time, memory, uint8(threads), uint32(keyLen))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// verifyAbsent burns the same work as a real verification for an
// unknown account key, keeping failure timing uniform.
func (h *Hasher) verifyAbsent(secret string) {
	_, _ = h.Verify(secret, dummyHash)
}
