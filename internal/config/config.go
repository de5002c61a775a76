package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/akm-xdd/igap-club/internal/storage"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	SQL       SQLConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	OIDC      OIDCConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	MinIO     storage.MinIOConfig
	Posts     PostsConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Backend   string
	IndexFile string
	PostsDir  string
	// BodyStore is "fs" or "minio"; only used by the file backend.
	BodyStore string
}

// Authenticated reports whether the backend keeps an owner per post.
func (s StorageConfig) Authenticated() bool {
	switch s.Backend {
	case BackendSQLite, BackendPostgres, BackendMongo:
		return true
	}
	return false
}

type SQLConfig struct {
	DSN     string
	Timeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type OIDCConfig struct {
	Issuer        string
	ClientID      string
	AllowInsecure bool
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	// Backend is "memory" or "redis".
	Backend string
	RPS     float64
	Burst   int
	Window  time.Duration
}

type PostsConfig struct {
	DefaultAuthor string
	OwnerOnUpdate bool
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("STORAGE_INDEX_FILE", "data/posts.json")
	v.SetDefault("STORAGE_POSTS_DIR", "data/posts")
	v.SetDefault("STORAGE_BODY_STORE", "fs")
	v.SetDefault("SQL_TIMEOUT", 10)
	v.SetDefault("MONGODB_DATABASE", "igap")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", 1)
	v.SetDefault("MINIO_BUCKET", "posts")
	v.SetDefault("POSTS_DEFAULT_AUTHOR", "akm-xdd")
	v.SetDefault("POSTS_OWNER_ON_UPDATE", false)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
			IndexFile: v.GetString("STORAGE_INDEX_FILE"),
			PostsDir:  v.GetString("STORAGE_POSTS_DIR"),
			BodyStore: strings.ToLower(v.GetString("STORAGE_BODY_STORE")),
		},
		SQL: SQLConfig{
			DSN:     v.GetString("SQL_DSN"),
			Timeout: time.Duration(v.GetInt("SQL_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		OIDC: OIDCConfig{
			Issuer:        v.GetString("OIDC_ISSUER"),
			ClientID:      v.GetString("OIDC_CLIENT_ID"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			Backend: strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
			Window:  time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Prefix:    v.GetString("MINIO_PREFIX"),
		},
		Posts: PostsConfig{
			DefaultAuthor: v.GetString("POSTS_DEFAULT_AUTHOR"),
			OwnerOnUpdate: v.GetBool("POSTS_OWNER_ON_UPDATE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" && cfg.OIDC.Issuer == "" && !cfg.OIDC.AllowInsecure {
		logger.Warnf("no JWT_SECRET or OIDC_ISSUER configured; requests will be anonymous")
	}
	return cfg, nil
}

// Validate checks backend-specific settings and fills backend defaults.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		switch c.Storage.BodyStore {
		case "fs":
		case "minio":
			if c.MinIO.Endpoint == "" {
				return fmt.Errorf("STORAGE_BODY_STORE=minio requires MINIO_ENDPOINT")
			}
		default:
			return fmt.Errorf("unknown STORAGE_BODY_STORE %q", c.Storage.BodyStore)
		}
	case BackendSQLite:
		if c.SQL.DSN == "" {
			c.SQL.DSN = "data/igap.db"
		}
	case BackendPostgres:
		if c.SQL.DSN == "" {
			return fmt.Errorf("STORAGE_BACKEND=postgres requires SQL_DSN")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORAGE_BACKEND=mongo requires MONGODB_URI")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	return nil
}
