package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager verifies access tokens issued by the auth service. Tokens carry
// the user id in "sub"; older tokens use "id".
type TokenManager struct {
	accessSecret []byte
}

func NewTokenManager(accessSecret string) *TokenManager {
	return &TokenManager{accessSecret: []byte(accessSecret)}
}

// Generate issues an access token. Only tooling and tests mint tokens here.
func (m *TokenManager) Generate(userID uuid.UUID, ttl time.Duration) (string, error) {
	at := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"exp":  time.Now().Add(ttl).Unix(),
		"type": "access",
	})
	return at.SignedString(m.accessSecret)
}

func (m *TokenManager) ValidateAccessToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.accessSecret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if typ, ok := claims["type"].(string); ok && typ != "access" {
		return uuid.Nil, ErrInvalidToken
	}

	for _, key := range []string{"sub", "id"} {
		if s, ok := claims[key].(string); ok && s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return uuid.Nil, ErrInvalidToken
			}
			return id, nil
		}
	}
	return uuid.Nil, ErrInvalidToken
}
