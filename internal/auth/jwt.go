package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// OperatorClaims identify a billing operator allowed to drive payments.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrNoSecret     = errors.New("JWT_SECRET is not set")
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateJWT signs an operator token valid for ttl.
func GenerateJWT(secret, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(secret, tokenStr string) (*OperatorClaims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&OperatorClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
