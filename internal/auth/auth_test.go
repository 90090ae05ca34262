package auth

import (
	"fileshare/internal/models"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	password := "mySecretPassword123"
	hash, err := HashPassword(password)

	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, password, hash)

	_, err = HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword(strings.Repeat("a", 80))
	require.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err = HashPassword(strings.Repeat("a", MaxPasswordLength))
	require.NoError(t, err)
	require.True(t, CheckPasswordHash(strings.Repeat("a", MaxPasswordLength), hash))
}

func TestCheckPasswordHash(t *testing.T) {
	password := "mySecretPassword123"
	hash, err := HashPassword(password)
	require.NoError(t, err)

	require.True(t, CheckPasswordHash(password, hash), "Password should match the hash")
	require.False(t, CheckPasswordHash("wrongPassword", hash), "Wrong password should not match the hash")
	require.False(t, CheckPasswordHash(password, "not-a-bcrypt-hash"))
}

func TestGenerateAndVerifyJWT(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	user := &models.User{
		ID:       123,
		Username: "testuser",
	}

	tokenString, err := GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := VerifyJWT(tokenString, secret)
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Username, claims.Username)
	require.Equal(t, issuer, claims.Issuer)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = VerifyJWT(tokenString, "wrong_secret")
	require.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestVerifyJWT_Expired(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	user := &models.User{ID: 1, Username: "expired"}

	tokenString, err := GenerateJWT(user, secret, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyJWT(tokenString, secret)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyJWT_ForeignIssuer(t *testing.T) {
	secret := "my_super_secret_key_for_testing"
	claims := &AppClaims{
		UserID: 5,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = VerifyJWT(signed, secret)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestNewRefreshToken(t *testing.T) {
	a := NewRefreshToken()
	b := NewRefreshToken()
	require.Len(t, a, refreshTokenLength)
	require.NotEqual(t, a, b)
}
