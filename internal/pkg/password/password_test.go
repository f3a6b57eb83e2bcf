package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, Verify("secret123", hash))
	assert.False(t, Verify("wrong", hash))
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("secret123")
	require.NoError(t, err)
	second, err := Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("token"), HashToken("token"))
	assert.NotEqual(t, HashToken("token"), HashToken("other"))
	assert.Len(t, HashToken("token"), 64)
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate("secret"))
	assert.True(t, Validate("a-much-longer-password"))
	assert.False(t, Validate("short"))
	assert.False(t, Validate(""))
}
