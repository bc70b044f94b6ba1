package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator validates HS256 tokens minted by the host application.
type HMACValidator struct {
	key []byte
}

// NewHMACValidator constructs a validator around a shared signing key.
func NewHMACValidator(key string) *HMACValidator {
	return &HMACValidator{key: []byte(key)}
}

type actorJWTClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Staff     bool   `json:"staff,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
}

// ValidateToken parses and verifies a bearer token, returning the actor it
// asserts. The subject claim is required; everything else is optional.
func (v *HMACValidator) ValidateToken(tokenString string) (*ActorClaims, error) {
	var claims actorJWTClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &ActorClaims{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		Staff:     claims.Staff,
		Superuser: claims.Superuser,
	}, nil
}
