package jwt

import (
	"errors"
	"fmt"
	"time"

	"contactbook/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("JWT secret is not configured")
)

func secret() []byte {
	if config.AppConfig == nil {
		return nil
	}
	return []byte(config.AppConfig.JWTSecret)
}

// Ready reports whether tokens can be signed.
func Ready() error {
	if len(secret()) == 0 {
		return ErrNoSecret
	}
	return nil
}

// GenerateToken creates a new JWT for a given user ID.
func GenerateToken(userID uint) (string, error) {
	key := secret()
	if len(key) == 0 {
		return "", ErrNoSecret
	}

	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * 24 * 7).Unix(), // Token expires in 7 days
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(key)
}

// ParseToken validates tokenString and returns the user ID in its subject.
func ParseToken(tokenString string) (uint, error) {
	key := secret()
	if len(key) == 0 {
		return 0, ErrNoSecret
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return uint(userIDFloat), nil
}
