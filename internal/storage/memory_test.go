package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/go-url-relay/internal/storage"
)

func TestMemoryStorage_GetOrCreate(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()

	record := storage.NewProxyRecord("http://example.test/file", "")

	got, created, err := mem.GetOrCreate(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, record, got)

	// Same pair again returns the stored record
	got, created, err = mem.GetOrCreate(ctx, record)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, record, got)

	found, err := mem.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, found)
}

func TestMemoryStorage_Distinct(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()

	a, _, err := mem.GetOrCreate(ctx, storage.NewProxyRecord("http://a", ""))
	require.NoError(t, err)
	b, _, err := mem.GetOrCreate(ctx, storage.NewProxyRecord("http://a", "X"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	found, err := mem.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", found.UserAgent)
}

func TestMemoryStorage_FindByID(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()

	record := storage.NewProxyRecord("http://a", "X")
	_, _, err := mem.GetOrCreate(ctx, record)
	require.NoError(t, err)

	found, err := mem.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, found)

	_, err = mem.FindByID(ctx, "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStorage_ConcurrentGetOrCreate(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	ctx := context.Background()
	record := storage.NewProxyRecord("http://a", "")

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := mem.GetOrCreate(ctx, record)
			assert.NoError(t, err)
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestMemoryStorage_PingContext(t *testing.T) {
	mem, _ := storage.CreateMemoryStorage()
	assert.NoError(t, mem.PingContext(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mem.PingContext(ctx), context.Canceled)
	assert.NoError(t, mem.Close())
}
