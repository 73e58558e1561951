package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-do-not-use"

func TestTokenRoundTrip(t *testing.T) {
	id := Identity{ID: uuid.New(), Role: RoleProfessional}

	token, err := MakeToken(id, testSecret, 15*time.Minute)
	require.NoError(t, err)

	parsed, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := MakeToken(Identity{ID: uuid.New(), Role: RolePatient}, testSecret, 15*time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "some-other-secret")
	require.ErrorIs(t, err, ErrBadToken)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := MakeToken(Identity{ID: uuid.New(), Role: RolePatient}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	require.ErrorIs(t, err, ErrBadToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	require.ErrorIs(t, err, ErrBadToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}
