package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

const (
	selectSessionQuery = `SELECT data FROM sessions WHERE conversation_id = ?`
	upsertSessionQuery = `INSERT INTO sessions (conversation_id, data, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(conversation_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
)

// SQLiteStore keeps sessions in a SQLite database.
type SQLiteStore struct {
	conn    *sql.DB
	path    string
	metrics *metrics.Metrics
}

// NewSQLite opens (creating if needed) the database at dbPath and
// initializes the schema. ":memory:" is accepted for tests.
func NewSQLite(ctx context.Context, dbPath string, m *metrics.Metrics) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := NewSQLiteWithDB(conn, m)
	s.path = dbPath
	return s, nil
}

// NewSQLiteWithDB wraps an open connection whose schema already exists.
func NewSQLiteWithDB(conn *sql.DB, m *metrics.Metrics) *SQLiteStore {
	return &SQLiteStore{conn: conn, metrics: m}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get implements session.Store.
func (s *SQLiteStore) Get(ctx context.Context, conversationID string) (*session.Session, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx, selectSessionQuery, conversationID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		recordOp(s.metrics, BackendSQLite, "get", nil, true)
		return nil, nil
	}
	if err != nil {
		recordOp(s.metrics, BackendSQLite, "get", err, false)
		return nil, fmt.Errorf("storage: get session %s: %w", conversationID, err)
	}

	sess, err := session.Unmarshal(data)
	recordOp(s.metrics, BackendSQLite, "get", err, false)
	return sess, err
}

// Put implements session.Store.
func (s *SQLiteStore) Put(ctx context.Context, conversationID string, sess *session.Session) error {
	data, err := session.Marshal(sess)
	if err != nil {
		recordOp(s.metrics, BackendSQLite, "put", err, false)
		return err
	}

	_, err = s.conn.ExecContext(ctx, upsertSessionQuery, conversationID, data, time.Now().Unix())
	recordOp(s.metrics, BackendSQLite, "put", err, false)
	if err != nil {
		return fmt.Errorf("storage: put session %s: %w", conversationID, err)
	}
	return nil
}

// Ping implements session.Pinger.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	err := s.conn.PingContext(ctx)
	recordOp(s.metrics, BackendSQLite, "ping", err, false)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
