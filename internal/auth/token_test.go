package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := NewTokenService(testKey, 0)

	token, err := ts.Sign("alice", "room1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "room1", claims.RoomId)

	// the same pair may be signed again; both tokens verify
	token2, err := ts.Sign("alice", "room1")
	require.NoError(t, err)
	_, err = ts.Verify(token2)
	assert.NoError(t, err)
}

func TestTokenServiceExpired(t *testing.T) {
	ts := NewTokenService(testKey, -time.Minute)

	token, err := ts.Sign("alice", "room1")
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.Error(t, err, "expected an expired token to fail verification")
}

func TestTokenServiceWrongKey(t *testing.T) {
	signer := NewTokenService(testKey, 0)
	verifier := NewTokenService([]byte("some-other-key"), 0)

	token, err := signer.Sign("alice", "room1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err, "expected a signature mismatch to fail verification")
}

func TestTokenServiceMalformed(t *testing.T) {
	ts := NewTokenService(testKey, 0)

	_, err := ts.Verify("not-a-token")
	assert.Error(t, err)

	_, err = ts.Verify("")
	assert.Error(t, err)
}

func TestTokenServiceMissingClaims(t *testing.T) {
	ts := NewTokenService(testKey, 0)

	// a token signed with the right key but without a username is invalid
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room_id": "room1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testKey)
	require.NoError(t, err)

	_, err = ts.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
