package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	var counts []int
	r := NewRegistry(newSource(), Options{}, time.Hour)
	r.OnChange = func(n int) { counts = append(counts, n) }

	id, s := r.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(id))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []int{1, 0}, counts)

	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(id), ErrSessionNotFound)
}

func TestRegistry_GetInvalidID(t *testing.T) {
	r := NewRegistry(newSource(), Options{}, time.Hour)
	_, err := r.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)
	r := NewRegistry(newSource(), Options{}, 30*time.Minute)
	r.now = func() time.Time { return now }

	stale, _ := r.Create()
	fresh, _ := r.Create()

	now = now.Add(20 * time.Minute)
	_, err := r.Get(fresh)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	_, err = r.Get(stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(fresh)
	assert.NoError(t, err)
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := NewRegistry(newSource(), Options{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
