package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

func sampleSession() *session.Session {
	s := session.New()
	s.SetResults(course.Period{Year: 2017, Term: 2}, []course.Record{
		{
			RegistrationNumber: "10865",
			Code:               "IIC2233",
			Section:            "1",
			Name:               "Programación Avanzada",
			Credits:            10,
			Vacancy:            course.Vacancy{Available: 7, Total: 120},
			Schedule:           []course.ScheduleEntry{{Type: "CLAS", When: "L-W:4", Where: "B12"}},
			Teachers:           []string{"Ruz Cristian"},
		},
		{
			RegistrationNumber: "10866",
			Code:               "IIC2233",
			Section:            "2",
			Name:               "Programación Avanzada",
			Credits:            10,
			Vacancy:            course.Vacancy{Total: 60},
			Schedule:           []course.ScheduleEntry{{Type: "AYU", When: "J:4", Where: "SALA_A"}},
			Teachers:           []string{"Pichara Karim"},
		},
	}, 1)
	s.GoTo(1)
	s.Ask()
	return s
}

// exerciseStore checks the behaviour every backend shares.
func exerciseStore(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	assert.Nil(t, got, "missing session must be (nil, nil)")

	want := sampleSession()
	require.NoError(t, store.Put(ctx, "telegram:1", want))

	// Mutating the caller's copy after Put must not leak into the store.
	want.Results.Pages[0][0].Name = "mutated"

	got, err = store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleSession(), got)

	// Upsert overwrites.
	got.Reset()
	require.True(t, got.GoTo(0))
	require.NoError(t, store.Put(ctx, "telegram:1", got))

	again, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	assert.False(t, again.Awaiting())
	assert.Equal(t, 0, again.Results.Paging.Current)

	// Other conversations are independent.
	other, err := store.Get(ctx, "line:U1")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()
	store, err := Open(context.Background(), Config{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	exerciseStore(t, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()
	store, err := Open(context.Background(), Config{Backend: BackendSQLite, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	exerciseStore(t, store)
}

func TestOpen_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Backend: "cassandra"}, nil)
	assert.ErrorContains(t, err, "cassandra")
}

func TestOpen_S3MissingConfig(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Backend: BackendS3}, nil)
	assert.ErrorContains(t, err, "bucket")
}

func TestRecordOp(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())

	recordOp(m, BackendRedis, "get", nil, true)
	recordOp(m, BackendRedis, "get", nil, false)
	recordOp(m, BackendRedis, "put", assert.AnError, false)
	recordOp(nil, BackendRedis, "put", nil, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionStoreOpsTotal.WithLabelValues(BackendRedis, "get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionStoreOpsTotal.WithLabelValues(BackendRedis, "get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionStoreOpsTotal.WithLabelValues(BackendRedis, "put", "error")))
}
