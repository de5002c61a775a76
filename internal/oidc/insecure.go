package oidc

import (
	"context"
	"fmt"

	"github.com/akm-xdd/igap-club/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims target %T", v)
	}
	*m = map[string]interface{}(t)
	return nil
}

// InsecureVerifier implements a verifier that does NOT validate signatures.
// Only intended for local/integration tests under explicit opt-in (ALLOW_INSECURE_TOKEN).
type InsecureVerifier struct {
	parser *jwt.Parser
}

func NewInsecureVerifier() *InsecureVerifier {
	return &InsecureVerifier{parser: jwt.NewParser()}
}

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	if _, _, err := v.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claimsToken(claims), nil
}
