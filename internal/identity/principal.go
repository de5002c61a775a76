package identity

import (
	"context"
	"strings"
)

// ContextKey is the gin context key under which the auth middleware stores
// the authenticated *Principal.
const ContextKey = "principal"

// Principal is an authenticated caller as asserted by the external identity
// provider. ID is the provider subject and the owner key of posts.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Handle is the display name captured as a post's author.
func (p *Principal) Handle() string {
	if p == nil {
		return "user"
	}
	if u := strings.TrimSpace(p.Username); u != "" {
		return u
	}
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return "user"
}

func claimString(claims map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// FromClaims builds a Principal from verified token claims. It returns nil
// when the token carries no subject.
func FromClaims(claims map[string]interface{}) *Principal {
	sub := claimString(claims, "sub")
	if sub == "" {
		return nil
	}
	return &Principal{
		ID:       sub,
		Username: claimString(claims, "preferred_username", "login", "username"),
		Name:     claimString(claims, "name"),
		Email:    claimString(claims, "email"),
	}
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
