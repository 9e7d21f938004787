package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Unit tests for token primitives.
// Justification: single-use share security rests on these invariants -
// digests must be deterministic, verification exact, prefixes bounded.

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40, "32 bytes base64url should exceed 40 chars")
}

func TestHashAndVerify(t *testing.T) {
	raw, err := GenerateToken()
	require.NoError(t, err)
	digest := HashToken(raw)

	t.Run("digest is deterministic", func(t *testing.T) {
		assert.Equal(t, digest, HashToken(raw))
	})

	t.Run("digest differs from raw token", func(t *testing.T) {
		assert.NotEqual(t, raw, digest)
	})

	t.Run("correct token verifies", func(t *testing.T) {
		assert.True(t, VerifyToken(raw, digest))
	})

	t.Run("wrong token fails", func(t *testing.T) {
		other, err := GenerateToken()
		require.NoError(t, err)
		assert.False(t, VerifyToken(other, digest))
	})

	t.Run("truncated token fails", func(t *testing.T) {
		assert.False(t, VerifyToken(raw[:len(raw)-1], digest))
	})
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abcdefgh", Prefix("abcdefghijkl"))
	assert.Equal(t, "short", Prefix("short"))
	assert.Equal(t, "", Prefix(""))
}
