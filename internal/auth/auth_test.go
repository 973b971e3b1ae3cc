package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")
	assert.Contains(t, hash, "p=1")

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	a, err := HashPassword("pw")
	require.NoError(t, err)
	b, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestZeroParallelismIsRaised(t *testing.T) {
	p := LobbyPasswordParams
	p.Parallelism = 0
	hash, err := CreateHash("pw", p)
	require.NoError(t, err)
	decoded, _, _, err := DecodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), decoded.Parallelism)
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$nonsense$c2FsdA$a2V5",
	} {
		_, _, _, err := DecodeHash(bad)
		assert.Error(t, err, bad)
	}
	_, err := VerifyPassword("pw", "plain")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestTokenRoundTrip(t *testing.T) {
	s, err := NewTokenSigner(time.Hour)
	require.NoError(t, err)

	tok, err := s.Issue("player-1")
	require.NoError(t, err)

	id, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "player-1", id)
}

func TestTokenFromOtherSignerRejected(t *testing.T) {
	a, err := NewTokenSigner(0)
	require.NoError(t, err)
	b, err := NewTokenSigner(0)
	require.NoError(t, err)

	tok, err := a.Issue("p")
	require.NoError(t, err)
	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	s, err := NewTokenSigner(time.Minute)
	require.NoError(t, err)
	now := time.Now()
	s.now = func() time.Time { return now }

	tok, err := s.Issue("p")
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
