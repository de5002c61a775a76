package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates a signed HS256 access token for the principal
func GenerateAccessToken(secret string, p *identity.Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                p.ID,
		"preferred_username": p.Username,
		"name":               p.Name,
		"email":              p.Email,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseAccessToken validates signature and expiry of an HS256 token.
func ParseAccessToken(secret, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// ExpiresIn returns the time left before the token in claims expires.
func ExpiresIn(claims map[string]interface{}, now time.Time) (time.Duration, bool) {
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0).Sub(now), true
	case int64:
		return time.Unix(exp, 0).Sub(now), true
	}
	return 0, false
}

type mapToken map[string]interface{}

func (t mapToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims target %T", v)
	}
	*m = map[string]interface{}(t)
	return nil
}

// HMACVerifier verifies tokens minted by GenerateAccessToken.
type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier { return &HMACVerifier{secret: secret} }

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := ParseAccessToken(v.secret, raw)
	if err != nil {
		return nil, err
	}
	return mapToken(claims), nil
}
