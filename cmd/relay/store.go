package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/repository"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

// openStore picks the record store from the DATABASE_URL scheme:
// memory://, file://<journal>, redis:// or rediss://, anything else is
// handed to the SQL repository (sqlite or postgres).
func openStore(ctx context.Context, dsn string, logger *zap.Logger) (service.Storage, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "memory://"):
		logger.Info("using in memory storage")
		return storage.CreateMemoryStorage()

	case strings.HasPrefix(lower, "file://"):
		path := strings.TrimSpace(dsn)[len("file://"):]
		if path == "" {
			return nil, fmt.Errorf("file storage: empty path")
		}
		logger.Info("using file", zap.String("filePath", path))
		return storage.NewFileStorage(path, logger)

	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		logger.Info("using redis")
		return storage.NewRedisStorage(ctx, strings.TrimSpace(dsn))

	default:
		db, dialect, err := repository.InitDB(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return repository.CreateProxyRepository(db, dialect, logger), nil
	}
}
