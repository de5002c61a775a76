// Command import copies the legacy file-backed posts into an authenticated
// backend under a single owner.
//
//	import -target sqlite -owner-id 1234 -owner-name akm-xdd
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/akm-xdd/igap-club/internal/app"
	"github.com/akm-xdd/igap-club/internal/config"
	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post/migrate"
	"github.com/akm-xdd/igap-club/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.InitWithFormat(cfg.Log.Level, cfg.Log.Format)

	target := flag.String("target", cfg.Storage.Backend, "destination backend: sqlite, postgres or mongo")
	ownerID := flag.String("owner-id", "", "identity subject that will own the imported posts")
	ownerName := flag.String("owner-name", cfg.Posts.DefaultAuthor, "username recorded for the owner")
	flag.Parse()

	switch *target {
	case config.BackendSQLite, config.BackendPostgres, config.BackendMongo:
	default:
		return fmt.Errorf("target must be sqlite, postgres or mongo, got %q", *target)
	}

	ctx := context.Background()
	srcCfg := *cfg
	srcCfg.Storage.Backend = config.BackendFile
	src, err := app.OpenBackend(ctx, &srcCfg, nil)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}
	defer src.Close()

	dstCfg := *cfg
	dstCfg.Storage.Backend = *target
	if err := dstCfg.Validate(); err != nil {
		return err
	}
	dst, err := app.OpenBackend(ctx, &dstCfg, nil)
	if err != nil {
		return fmt.Errorf("open %s: %w", *target, err)
	}
	defer dst.Close()

	owner := &identity.Principal{ID: *ownerID, Username: *ownerName}
	res, err := migrate.Copy(ctx, src.Repo, dst.Repo, owner, dst.Users)
	if err != nil {
		return err
	}
	fmt.Printf("copied %d, already present %d, missing body %d\n", res.Copied, res.Existing, res.Missing)
	return nil
}
