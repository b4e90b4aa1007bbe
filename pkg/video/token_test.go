package video

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTokenClaims(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", 30*time.Minute)

	signed, err := issuer.RoomToken("consult-42", "Budi")
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "app-1", claims["iss"])
	assert.Equal(t, "consult-42", claims["room"])
	assert.Equal(t, "Budi", claims["identity"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	iat, err := claims.GetIssuedAt()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, exp.Sub(iat.Time))
}

func TestRoomTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer("app-1", "super-secret", time.Minute)

	signed, err := issuer.RoomToken("consult-42", "Budi")
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	assert.Error(t, err)
}

func TestRoomTokenNotConfigured(t *testing.T) {
	issuer := NewIssuer("", "", time.Minute)

	_, err := issuer.RoomToken("consult-42", "Budi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
