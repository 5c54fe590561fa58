// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package credstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher()

	encoded, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("hunter2", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("hunter3", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_EmptySecret(t *testing.T) {
	h := NewHasher()

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := NewHasher()

	first, err := h.Hash("same-secret")
	require.NoError(t, err)
	second, err := h.Hash("same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher()

	tests := []struct {
		name    string
		encoded string
	}{
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$AAAA$BBBB"},
		{"missing sections", "$argon2id$v=19$m=65536"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=1,p=4$!!!$AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Verify("secret", tt.encoded)
			assert.Error(t, err)
		})
	}
}

func TestHasher_DummyHashNeverMatches(t *testing.T) {
	h := NewHasher()

	ok, err := h.Verify("anything", dummyHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
