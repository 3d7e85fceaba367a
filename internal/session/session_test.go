package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPeriod = course.Period{Year: 2017, Term: 2}

func records(n int) []course.Record {
	out := make([]course.Record, n)
	for i := range out {
		out[i] = course.Record{
			RegistrationNumber: fmt.Sprintf("%d", 1000+i),
			Code:               "IIC2233",
			Section:            fmt.Sprintf("%d", i+1),
			Name:               "PROGRAMACION AVANZADA",
			Schedule:           []course.ScheduleEntry{{Type: "CLAS", When: "L-W:2", Where: "B12"}},
			Teachers:           []string{"Ruz Cristian"},
		}
	}
	return out
}

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	assert.Equal(t, StateIdle, s.State)
	assert.False(t, s.HasResults())
	assert.Nil(t, s.CurrentPage())

	s.Ask()
	assert.True(t, s.Awaiting())

	s.SetResults(testPeriod, records(25), 10)
	s.Reset()
	assert.False(t, s.Awaiting())
	require.True(t, s.HasResults(), "Reset must keep results")
	assert.Len(t, s.CurrentPage(), 10)
	assert.Equal(t, 3, s.Results.Paging.PageCount)
}

func TestSession_GoTo(t *testing.T) {
	t.Parallel()

	t.Run("without results", func(t *testing.T) {
		t.Parallel()
		s := New()
		assert.False(t, s.GoTo(0))
		assert.Nil(t, s.Results)
	})

	t.Run("in and out of range", func(t *testing.T) {
		t.Parallel()
		s := New()
		s.SetResults(testPeriod, records(25), 10)

		require.True(t, s.GoTo(2))
		assert.Len(t, s.CurrentPage(), 5)
		assert.Equal(t, "21", s.CurrentPage()[0].Section)

		assert.False(t, s.GoTo(-1))
		assert.False(t, s.GoTo(3))
		assert.Equal(t, 2, s.Results.Paging.Current)

		before := s.Clone()
		require.True(t, s.GoTo(2))
		assert.Equal(t, before, s, "repeated GoTo must not change the session")
	})
}

func TestSession_CloneIsDeep(t *testing.T) {
	t.Parallel()
	s := New()
	s.SetResults(testPeriod, records(3), 2)

	c := s.Clone()
	c.Results.Pages[0][0].Teachers[0] = "changed"
	c.Results.Paging.Current = 1
	c.State = StateAwaitingAnswer

	assert.Equal(t, "Ruz Cristian", s.Results.Pages[0][0].Teachers[0])
	assert.Equal(t, 0, s.Results.Paging.Current)
	assert.Equal(t, StateIdle, s.State)
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	s := New()
	s.Ask()
	s.SetResults(testPeriod, records(12), 5)
	require.True(t, s.GoTo(1))

	data, err := Marshal(s)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestUnmarshal_UnknownStateIsIdle(t *testing.T) {
	t.Parallel()
	got, err := Unmarshal([]byte(`{"state":"weird"}`))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, got.State)

	_, err = Unmarshal([]byte(`{`))
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	assert.Nil(t, got)

	s := New()
	s.SetResults(testPeriod, records(4), 2)
	require.NoError(t, store.Put(ctx, "telegram:1", s))

	// Mutating the caller's copy must not leak into the store.
	s.Results.Paging.Current = 1
	s.Results.Pages[0][0].Name = "mutated"

	got, err = store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Results.Paging.Current)
	assert.Equal(t, "PROGRAMACION AVANZADA", got.Results.Pages[0][0].Name)
	assert.Equal(t, 1, store.Len())
	assert.NoError(t, store.Ping(ctx))
}
