package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/config"
	"github.com/and161185/goph-social/internal/migrate"
	"github.com/and161185/goph-social/internal/repository"
	"github.com/and161185/goph-social/internal/repository/file"
	"github.com/and161185/goph-social/internal/repository/gormkv"
	"github.com/and161185/goph-social/internal/repository/memory"
	"github.com/and161185/goph-social/internal/repository/mongo"
	"github.com/and161185/goph-social/internal/repository/postgres"
	"github.com/and161185/goph-social/internal/repository/sealed"
)

// openBackend opens the blob store selected by cfg and wraps it in the
// sealing decorator when a passphrase is configured.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.BlobStore, error) {
	inner, err := openInner(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	if cfg.Passphrase == "" {
		return inner, nil
	}
	s, err := sealed.Open(ctx, inner, cfg.Passphrase)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return s, nil
}

func openInner(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.BlobStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn("memory backend selected; data is discarded on exit")
		return memory.New(), nil
	case config.BackendFile:
		return file.Open(cfg.DataDir)
	case config.BackendPostgres:
		if err := migrate.Up(ctx, cfg.PGDSN); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewBlobRepo(db), nil
	case config.BackendMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.BackendMySQL:
		return gormkv.Open(cfg.MySQLDSN)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
