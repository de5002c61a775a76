package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// RevocationChecker reports whether an access token was revoked (logout).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Context keys set by the auth middlewares.
const (
	ClaimsKey      = "claims"
	AccessTokenKey = "access_token"
)

type authConfig struct {
	revocations RevocationChecker
}

type AuthOption func(*authConfig)

// WithRevocations rejects tokens that rc reports as revoked.
func WithRevocations(rc RevocationChecker) AuthOption {
	return func(a *authConfig) { a.revocations = rc }
}

type authError struct {
	status  int
	msg     string
	details string
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate verifies the bearer token and stores claims, the raw token and
// the principal on the gin context.
func authenticate(c *gin.Context, ver Verifier, cfg *authConfig, header string) *authError {
	token, ok := bearerToken(header)
	if !ok {
		return &authError{msg: "invalid Authorization header"}
	}
	ctx := c.Request.Context()
	if cfg.revocations != nil {
		revoked, err := cfg.revocations.IsRevoked(ctx, token)
		if err != nil {
			// an unverifiable revocation list rejects the token
			logger.Errorf("token revocation check failed: %v", err)
			return &authError{status: http.StatusServiceUnavailable, msg: "token revocation check failed"}
		}
		if revoked {
			return &authError{msg: "token revoked"}
		}
	}

	idToken, err := ver.Verify(ctx, token)
	if err != nil {
		return &authError{msg: "invalid token", details: err.Error()}
	}
	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return &authError{msg: "failed to parse claims"}
	}
	p := identity.FromClaims(claims)
	if p == nil {
		return &authError{msg: "token has no subject"}
	}

	c.Set(ClaimsKey, claims)
	c.Set(AccessTokenKey, token)
	c.Set(identity.ContextKey, p)
	c.Request = c.Request.WithContext(identity.WithPrincipal(ctx, p))
	return nil
}

func abort(c *gin.Context, e *authError) {
	body := gin.H{"error": e.msg}
	if e.details != "" {
		body["details"] = e.details
	}
	status := e.status
	if status == 0 {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, body)
}

func newAuthConfig(opts []AuthOption) *authConfig {
	cfg := &authConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier, opts ...AuthOption) gin.HandlerFunc {
	cfg := newAuthConfig(opts)
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if e := authenticate(c, ver, cfg, auth); e != nil {
			abort(c, e)
			return
		}
		c.Next()
	}
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// OptionalAuthMiddleware lets requests without an Authorization header through
// anonymously. A header that fails verification is rejected on writes; reads
// continue as anonymous.
func OptionalAuthMiddleware(ver Verifier, opts ...AuthOption) gin.HandlerFunc {
	cfg := newAuthConfig(opts)
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || ver == nil {
			c.Next()
			return
		}
		if e := authenticate(c, ver, cfg, auth); e != nil {
			if safeMethod(c.Request.Method) {
				logger.Debugf("ignoring unusable token on %s %s: %s", c.Request.Method, c.Request.URL.Path, e.msg)
				c.Next()
				return
			}
			abort(c, e)
			return
		}
		c.Next()
	}
}
