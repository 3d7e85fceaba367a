// Package storage provides the persistent session.Store backends: SQLite,
// Redis and S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/r2client"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// sqliteFileName is the database file created inside Config.DataDir.
const sqliteFileName = "sessions.db"

// Store is a session store owned by the application: it can be health
// checked and must be closed on shutdown.
type Store interface {
	session.Store
	session.Pinger
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	DataDir  string        // sqlite
	RedisURL string        // redis
	TTL      time.Duration // redis; 0 keeps sessions forever
	Prefix   string        // redis key prefix / object key prefix
	S3       r2client.Config
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config, m *metrics.Metrics) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return memoryStore{session.NewMemoryStore()}, nil
	case BackendSQLite:
		return NewSQLite(ctx, filepath.Join(cfg.DataDir, sqliteFileName), m)
	case BackendRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL, m)
	case BackendS3:
		client, err := r2client.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return NewObjectStore(client, cfg.Prefix, m), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// memoryStore adapts session.MemoryStore to Store.
type memoryStore struct {
	*session.MemoryStore
}

func (memoryStore) Close() error { return nil }

// recordOp counts a store operation. Missing sessions count as "miss".
func recordOp(m *metrics.Metrics, backend, op string, err error, miss bool) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case miss:
		status = "miss"
	}
	m.RecordSessionStoreOp(backend, op, status)
}
