package storage

import (
	"bytes"
	"context"
	"errors"
	"path"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/r2client"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

// DefaultObjectPrefix is the key prefix used when none is configured.
const DefaultObjectPrefix = "sessions"

const objectContentType = "application/zstd"

// ObjectStore keeps each session as a zstd-compressed JSON object.
type ObjectStore struct {
	client  *r2client.Client
	prefix  string
	metrics *metrics.Metrics
}

// NewObjectStore creates a store writing under prefix.
func NewObjectStore(client *r2client.Client, prefix string, m *metrics.Metrics) *ObjectStore {
	if prefix == "" {
		prefix = DefaultObjectPrefix
	}
	return &ObjectStore{client: client, prefix: prefix, metrics: m}
}

// Key returns the object key of a conversation.
func (s *ObjectStore) Key(conversationID string) string {
	return path.Join(s.prefix, conversationID+".json.zst")
}

// Get implements session.Store.
func (s *ObjectStore) Get(ctx context.Context, conversationID string) (*session.Session, error) {
	body, _, err := s.client.Download(ctx, s.Key(conversationID))
	if errors.Is(err, r2client.ErrNotFound) {
		recordOp(s.metrics, BackendS3, "get", nil, true)
		return nil, nil
	}
	if err != nil {
		recordOp(s.metrics, BackendS3, "get", err, false)
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := r2client.Decompress(body)
	if err != nil {
		recordOp(s.metrics, BackendS3, "get", err, false)
		return nil, err
	}

	sess, err := session.Unmarshal(data)
	recordOp(s.metrics, BackendS3, "get", err, false)
	return sess, err
}

// Put implements session.Store.
func (s *ObjectStore) Put(ctx context.Context, conversationID string, sess *session.Session) error {
	data, err := session.Marshal(sess)
	if err != nil {
		recordOp(s.metrics, BackendS3, "put", err, false)
		return err
	}

	_, err = s.client.Upload(ctx, s.Key(conversationID), bytes.NewReader(r2client.Compress(data)), objectContentType)
	recordOp(s.metrics, BackendS3, "put", err, false)
	return err
}

// Ping implements session.Pinger.
func (s *ObjectStore) Ping(ctx context.Context) error {
	err := s.client.Ping(ctx)
	recordOp(s.metrics, BackendS3, "ping", err, false)
	return err
}

// Close is a no-op; the S3 client holds no long-lived resources.
func (s *ObjectStore) Close() error {
	return nil
}
