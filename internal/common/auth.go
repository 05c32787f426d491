package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthDisabled is returned when a token operation is attempted without a secret.
var ErrAuthDisabled = errors.New("authentication disabled: no jwt_secret configured")

// SignToken creates a signed HMAC-SHA256 JWT for the given subject.
// A non-positive ttl falls back to the configured token expiry.
func SignToken(subject string, ttl time.Duration, config *AuthConfig) (string, error) {
	if !config.Enabled() {
		return "", ErrAuthDisabled
	}
	if ttl <= 0 {
		ttl = config.GetTokenExpiry()
	}
	issuer := config.Issuer
	if issuer == "" {
		issuer = "finsight"
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// ValidateToken parses and validates a JWT token string, returning the caller it identifies.
func ValidateToken(tokenString string, config *AuthConfig) (*CallerContext, error) {
	if !config.Enabled() {
		return nil, ErrAuthDisabled
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	iss, _ := claims["iss"].(string)
	return &CallerContext{Subject: sub, Issuer: iss}, nil
}
