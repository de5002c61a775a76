package handlers

import (
	"net/http"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/sessions"
	"github.com/akm-xdd/igap-club/internal/tokens"
	"github.com/akm-xdd/igap-club/internal/users"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/akm-xdd/igap-club/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves the identity endpoints. Sign-in happens at the external
// provider; this service only consumes and revokes the resulting tokens.
type AuthHandler struct {
	usersSvc  *users.Service
	blacklist *sessions.Blacklist
	// fallbackTTL is used for revocation when a token has no exp claim.
	fallbackTTL time.Duration
}

// NewAuthHandler wires the handler. u and bl may be nil.
func NewAuthHandler(u *users.Service, bl *sessions.Blacklist, fallbackTTL time.Duration) *AuthHandler {
	return &AuthHandler{usersSvc: u, blacklist: bl, fallbackTTL: fallbackTTL}
}

// Register mounts /api/v1/me and /api/auth/logout behind auth.
func (h *AuthHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/api/v1/me", auth, h.Me)
	r.POST("/api/auth/logout", auth, h.Logout)
}

func claimsFrom(c *gin.Context) map[string]interface{} {
	v, _ := c.Get(middleware.ClaimsKey)
	cm, _ := v.(map[string]interface{})
	return cm
}

// Me returns the stored user, upserting it from the token claims first.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFrom(c)
	if h.usersSvc != nil {
		u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
		if err != nil {
			logger.Errorf("user upsert error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user upsert failed"})
			return
		}
		if u != nil {
			c.JSON(http.StatusOK, gin.H{"user": u})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"principal": identity.FromContext(c.Request.Context()), "claims": claims})
}

// Logout blacklists the presented access token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Get(middleware.AccessTokenKey)
	token, _ := raw.(string)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing access token"})
		return
	}
	ttl, ok := tokens.ExpiresIn(claimsFrom(c), time.Now())
	if !ok {
		ttl = h.fallbackTTL
	}
	if err := h.blacklist.Revoke(c.Request.Context(), token, ttl); err != nil {
		logger.Errorf("failed to blacklist access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
