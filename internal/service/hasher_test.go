package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	for _, pw := range []string{"secret1", "pw", "", "ünïcødé pässwörd", "a longer passphrase with spaces"} {
		digest, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, []byte(pw), digest)

		ok, err := h.Verify(pw, digest)
		require.NoError(t, err)
		assert.True(t, ok, "password %q must verify", pw)

		ok, err = h.Verify(pw+"x", digest)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHasherSaltsEachHash(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasherMalformedDigest(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	for _, digest := range [][]byte{nil, []byte("short"), []byte("not-a-bcrypt-hash-but-long-enough-to-pass-the-length-check-000")} {
		ok, err := h.Verify("pw", digest)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestNewHasherRejectsBadCost(t *testing.T) {
	_, err := NewHasher(bcrypt.MaxCost + 1)
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewHasher(bcrypt.MinCost - 1)
	assert.ErrorIs(t, err, ErrMisconfigured)
}
