package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Ошибки проверки токенов
var (
	// ErrInvalidToken возвращается для токенов с неверной подписью или структурой
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken возвращается для истекших токенов
	ErrExpiredToken = errors.New("token is expired")
)

// IdentityClaims - клеймы токена внешнего провайдера аутентификации.
// Идентификатор пользователя лежит в стандартном subject.
type IdentityClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier проверяет токены провайдера аутентификации.
// Выпуском токенов сервис не занимается - только верификацией.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier создает новый верификатор токенов
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// VerifyToken проверяет подпись и срок действия токена и возвращает клеймы
func (v *TokenVerifier) VerifyToken(tokenString string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}

	return claims, nil
}
