package xseed

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagan/ptxseed/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "ptxseed.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestStoreCache(t *testing.T) {
	store := openTestStore(t)
	cache := NewCacheStore()
	cache.Add(CacheSuccess, "A:1")
	cache.Add(CachePermanentError, "A:2")
	cache.Add(CacheError, "A:3")
	cache.add(CacheError, "A:4", util.Now()-7200)
	require.NoError(t, store.SaveCache(cache))

	loaded, err := store.LoadCache(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"A:1"}, loaded.Tags(CacheSuccess))
	assert.Equal(t, []string{"A:2"}, loaded.Tags(CachePermanentError))
	assert.Equal(t, []string{"A:3"}, loaded.Tags(CacheError))

	loaded, err = store.LoadCache(0)
	require.NoError(t, err)
	assert.Empty(t, loaded.Tags(CacheError))
	assert.Equal(t, []string{"A:2"}, loaded.Tags(CachePermanentError))

	// save replaces the snapshot
	loaded.ClearAll()
	loaded.Add(CacheSuccess, "B:1")
	require.NoError(t, store.SaveCache(loaded))
	loaded, err = store.LoadCache(0)
	require.NoError(t, err)
	assert.Len(t, loaded.Entries(), 1)

	require.NoError(t, store.ClearCache())
	loaded, err = store.LoadCache(0)
	require.NoError(t, err)
	assert.Empty(t, loaded.Entries())
}

func TestStoreQueue(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveQueue("D1", []string{hashB, hashA}))
	require.NoError(t, store.SaveQueue("D2", []string{hashC}))

	queue, err := store.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"D1": {hashB, hashA}, "D2": {hashC}}, queue)

	require.NoError(t, store.SaveQueue("D1", nil))
	queue, err = store.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"D2": {hashC}}, queue)

	scheduler := NewScheduler(nil, queue, store)
	scheduler.Enqueue("D2", hashA)
	queue, err = store.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, []string{hashC, hashA}, queue["D2"])
}

func TestStoreConcurrentWrites(t *testing.T) {
	store := openTestStore(t)
	cache := NewCacheStore()
	for i := range 3000 {
		cache.Add(CacheSuccess, fmt.Sprintf("A:%d", i))
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	queueErrors := 0
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := store.SaveQueue("D1", []string{hashA, hashB}); err != nil {
				queueErrors++
			}
		}
	}()
	for range 30 {
		assert.NoError(t, store.SaveCache(cache))
	}
	close(done)
	wg.Wait()
	assert.Equal(t, 0, queueErrors)

	loaded, err := store.LoadCache(0)
	require.NoError(t, err)
	assert.Equal(t, 3000, loaded.Len(CacheSuccess))
}
