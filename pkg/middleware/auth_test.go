package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/sessions"
	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken", "black-token":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "preferred_username": "octo", "email": "test@example.com"}}, nil
	case "nosub":
		return &fakeToken{data: map[string]interface{}{"email": "test@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serve(g *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	require.Equal(t, http.StatusUnauthorized, serve(g, "").Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	require.Equal(t, http.StatusUnauthorized, serve(g, "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer ").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer wrong").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer nosub").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, ok := c.Get(ClaimsKey)
		require.True(t, ok)
		p := identity.FromContext(c.Request.Context())
		require.NotNil(t, p)
		require.Equal(t, "octo", p.Handle())
		token, _ := c.Get(AccessTokenKey)
		require.Equal(t, "goodtoken", token)
		resp, _ := json.Marshal(gin.H{"claims": claims})
		c.Writer.Write(resp)
	})
	rw := serve(g, "Bearer goodtoken")

	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	token := "black-token"
	require.NoError(t, bl.Revoke(context.Background(), token, 5*time.Second))

	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}, WithRevocations(bl)), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer "+token).Code)
	require.Equal(t, http.StatusOK, serve(g, "Bearer goodtoken").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	g := gin.New()
	g.GET("/", OptionalAuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		if p := identity.FromContext(c.Request.Context()); p != nil {
			c.String(http.StatusOK, p.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	rw := serve(g, "")
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "anonymous", rw.Body.String())

	rw = serve(g, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "user1", rw.Body.String())

	rw = serve(g, "Bearer wrong")
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "anonymous", rw.Body.String())
}

func TestOptionalAuthMiddleware_RejectsBadTokenOnWrites(t *testing.T) {
	g := gin.New()
	g.POST("/", OptionalAuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestAuthMiddleware_RevocationStoreDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	m.Close()

	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}, WithRevocations(bl)), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.POST("/", OptionalAuthMiddleware(&fakeVerifier{}, WithRevocations(bl)), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusServiceUnavailable, serve(g, "Bearer goodtoken").Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer goodtoken")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
}
