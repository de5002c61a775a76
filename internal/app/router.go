package app

import (
	"context"
	"net/http"
	"time"

	"github.com/akm-xdd/igap-club/handlers"
	"github.com/akm-xdd/igap-club/internal/config"
	"github.com/akm-xdd/igap-club/internal/oidc"
	"github.com/akm-xdd/igap-club/internal/post/handler"
	"github.com/akm-xdd/igap-club/internal/post/service"
	"github.com/akm-xdd/igap-club/internal/sessions"
	"github.com/akm-xdd/igap-club/internal/tokens"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/akm-xdd/igap-club/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// Deps are the collaborators NewRouter wires together.
type Deps struct {
	Config   *config.Config
	Backend  *Backend
	Verifier middleware.Verifier
	// Redis is optional; it backs token revocation and the shared rate limiter.
	Redis *redis.Client
}

// NewVerifier picks the token verifier: OIDC issuer first, then HS256 with
// JWT_SECRET, then the insecure verifier when explicitly allowed. It returns
// nil when none is configured.
func NewVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.OIDC.Issuer != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err == nil {
			logger.Infof("verifying tokens against OIDC issuer %s", cfg.OIDC.Issuer)
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		logger.Infof("verifying HS256 tokens signed with JWT_SECRET")
		return tokens.NewHMACVerifier(cfg.JWT.Secret)
	}
	if cfg.OIDC.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func rateLimiter(cfg config.RateLimitConfig, client *redis.Client) gin.HandlerFunc {
	if cfg.Backend == "redis" && client != nil {
		return middleware.RedisRateLimitMiddleware(client, cfg.RPS, cfg.Burst, cfg.Window)
	}
	return middleware.RateLimitMiddleware(cfg.RPS, cfg.Burst)
}

// NewRouter builds the HTTP surface: health, readiness, metrics, swagger, the
// posts API and the identity endpoints.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	blacklist := sessions.NewBlacklist(d.Redis)
	authOpts := []middleware.AuthOption{middleware.WithRevocations(blacklist)}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["storage"] = d.Backend.Ping(c.Request.Context()) == nil
		ready = ready && deps["storage"]

		// an owned backend cannot accept writes without a verifier
		deps["identity"] = d.Verifier != nil || !d.Backend.Policy.RequireAuth
		ready = ready && deps["identity"]

		if d.Redis != nil {
			deps["redis"] = blacklist.Ping(c.Request.Context()) == nil
			ready = ready && deps["redis"]
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "backend": d.Backend.Name, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	opts := service.Options{
		Policy:        d.Backend.Policy,
		DefaultAuthor: cfg.Posts.DefaultAuthor,
	}
	if d.Backend.Users != nil {
		opts.Principals = d.Backend.Users
	}
	svc := service.New(d.Backend.Repo, opts)

	api := r.Group("/")
	api.Use(middleware.OptionalAuthMiddleware(d.Verifier, authOpts...))
	if cfg.RateLimit.Enabled {
		api.Use(rateLimiter(cfg.RateLimit, d.Redis))
	}
	handler.RegisterPostRoutes(api, svc)

	if d.Verifier != nil {
		h := handlers.NewAuthHandler(d.Backend.Users, blacklist, cfg.JWT.AccessTokenTTL)
		h.Register(r, middleware.AuthMiddleware(d.Verifier, authOpts...))
	} else {
		r.GET("/api/v1/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "authentication not configured"})
		})
	}
	return r
}
