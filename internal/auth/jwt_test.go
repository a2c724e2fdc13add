package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "bazaar", "bazaar", time.Hour)

	tokenString, err := a.GenerateToken(42, "seller", 9)
	require.NoError(t, err)

	token, err := a.ValidateToken(tokenString)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["sub"])
	assert.Equal(t, "seller", claims["role"])
	assert.EqualValues(t, 9, claims["shop"])
}

func TestJWTAuthenticator_BuyerHasNoShopClaim(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "bazaar", "bazaar", time.Hour)

	tokenString, err := a.GenerateToken(42, "buyer", 0)
	require.NoError(t, err)

	token, err := a.ValidateToken(tokenString)
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	_, present := claims["shop"]
	assert.False(t, present)
}

func TestJWTAuthenticator_RejectsWrongSecret(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "bazaar", "bazaar", time.Hour)
	b := NewJWTAuthenticator("other-secret", "bazaar", "bazaar", time.Hour)

	tokenString, err := a.GenerateToken(42, "buyer", 0)
	require.NoError(t, err)

	_, err = b.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestJWTAuthenticator_RejectsExpired(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "bazaar", "bazaar", -time.Minute)

	tokenString, err := a.GenerateToken(42, "buyer", 0)
	require.NoError(t, err)

	_, err = a.ValidateToken(tokenString)
	assert.Error(t, err)
}
