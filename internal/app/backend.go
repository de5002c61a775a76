package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akm-xdd/igap-club/internal/config"
	"github.com/akm-xdd/igap-club/internal/database"
	"github.com/akm-xdd/igap-club/internal/post/repository"
	"github.com/akm-xdd/igap-club/internal/post/service"
	"github.com/akm-xdd/igap-club/internal/storage"
	"github.com/akm-xdd/igap-club/internal/users"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"
)

// Backend is the storage selected by STORAGE_BACKEND together with the
// policy and user store that go with it.
type Backend struct {
	Name   string
	Repo   repository.Repository
	Policy service.Policy
	// Users is nil for the file and memory backends.
	Users *users.Service
	// Ping reports storage readiness.
	Ping  func(ctx context.Context) error
	Close func()
}

func noopPing(context.Context) error { return nil }

// OpenBackend connects the configured storage. fs is used by the file backend
// and defaults to the OS filesystem.
func OpenBackend(ctx context.Context, cfg *config.Config, fs afero.Fs) (*Backend, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return openFile(cfg, fs)
	case config.BackendMemory:
		return &Backend{Name: config.BackendMemory, Repo: repository.NewMemoryRepo(), Policy: service.OpenPolicy(), Ping: noopPing, Close: func() {}}, nil
	case config.BackendSQLite, config.BackendPostgres:
		return openSQL(ctx, cfg)
	case config.BackendMongo:
		return openMongo(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// BodyStore builds the body store for the file backend.
func BodyStore(cfg *config.Config, fs afero.Fs) (storage.BodyStore, error) {
	if cfg.Storage.BodyStore == "minio" {
		mc, err := storage.NewMinIOStorage(&cfg.MinIO)
		if err != nil {
			return nil, err
		}
		logger.Infof("post bodies stored in minio bucket %s", cfg.MinIO.Bucket)
		return mc, nil
	}
	return storage.NewFSBodyStore(fs, cfg.Storage.PostsDir), nil
}

func openFile(cfg *config.Config, fs afero.Fs) (*Backend, error) {
	bodies, err := BodyStore(cfg, fs)
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewFileRepo(repository.FileOptions{Fs: fs, IndexPath: cfg.Storage.IndexFile, Bodies: bodies})
	if err != nil {
		return nil, err
	}
	ping := func(ctx context.Context) error {
		_, err := repo.List(ctx)
		return err
	}
	return &Backend{Name: config.BackendFile, Repo: repo, Policy: service.OpenPolicy(), Ping: ping, Close: func() {}}, nil
}

func openSQL(ctx context.Context, cfg *config.Config) (*Backend, error) {
	d, err := database.ParseDialect(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}
	db, err := database.OpenSQL(ctx, d, cfg.SQL.DSN, cfg.SQL.Timeout)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{
		Name:   string(d),
		Repo:   repository.NewSQLRepo(db, d),
		Policy: service.OwnedPolicy(cfg.Posts.OwnerOnUpdate),
		Users:  users.NewService(users.NewSQLUserRepository(db, d)),
		Ping:   pingSQL(db),
		Close:  func() { _ = db.Close() },
	}, nil
}

func pingSQL(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}

func openMongo(ctx context.Context, cfg *config.Config) (*Backend, error) {
	// retry with backoff to tolerate startup races with the database container
	const maxAttempts = 5
	backoff := time.Second
	var (
		client *mongo.Client
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, "igap-club", cfg.MongoDB.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, err)
	}
	db := client.Database(cfg.MongoDB.Database)
	repo, err := repository.NewMongoRepo(ctx, db.Collection("posts"))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Backend{
		Name:   config.BackendMongo,
		Repo:   repo,
		Policy: service.OwnedPolicy(cfg.Posts.OwnerOnUpdate),
		Users:  users.NewService(users.NewMongoUserRepository(db.Collection("users"))),
		Ping: func(ctx context.Context) error {
			return database.PingMongo(ctx, client, 2*time.Second)
		},
		Close: func() { _ = client.Disconnect(context.Background()) },
	}, nil
}
