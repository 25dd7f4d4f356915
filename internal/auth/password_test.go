package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordDigestAndMatch(t *testing.T) {
	p := NewPasswordWithCost(bcrypt.MinCost)

	digest, err := p.Digest("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", digest)

	assert.True(t, p.Matches(digest, "hunter2hunter2"))
	assert.False(t, p.Matches(digest, "wrong password"))
}

func TestPasswordDigestsAreSalted(t *testing.T) {
	p := NewPasswordWithCost(bcrypt.MinCost)

	a, err := p.Digest("same password")
	require.NoError(t, err)
	b, err := p.Digest("same password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, p.Matches(a, "same password"))
	assert.True(t, p.Matches(b, "same password"))
}

func TestPasswordMatchesGarbageDigest(t *testing.T) {
	p := NewPasswordWithCost(bcrypt.MinCost)
	assert.False(t, p.Matches("not-a-bcrypt-digest", "anything"))
}
