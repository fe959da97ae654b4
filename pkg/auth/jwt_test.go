package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims IdentityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyToken_Valid(t *testing.T) {
	verifier, err := NewTokenVerifier("secret", "")
	require.NoError(t, err)

	tokenString := signTestToken(t, "secret", IdentityClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := verifier.VerifyToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyToken_Expired(t *testing.T) {
	verifier, _ := NewTokenVerifier("secret", "")

	tokenString := signTestToken(t, "secret", IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := verifier.VerifyToken(tokenString)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	verifier, _ := NewTokenVerifier("secret", "")

	tokenString := signTestToken(t, "other-secret", IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := verifier.VerifyToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	verifier, _ := NewTokenVerifier("secret", "")

	tokenString := signTestToken(t, "secret", IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := verifier.VerifyToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_IssuerCheck(t *testing.T) {
	verifier, _ := NewTokenVerifier("secret", "ajquiz-auth")

	good := signTestToken(t, "secret", IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "ajquiz-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	bad := signTestToken(t, "secret", IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := verifier.VerifyToken(good)
	assert.NoError(t, err)

	_, err = verifier.VerifyToken(bad)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenVerifier_RequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier("", "")
	assert.Error(t, err)
}
