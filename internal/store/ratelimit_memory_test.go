package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/safelink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMemoryStore(t *testing.T) {
	t.Run("increments and returns the new value", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		count1, err := s.Increment(context.Background(), "key1", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count1)

		count2, err := s.Increment(context.Background(), "key1", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(2), count2)
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Increment(context.Background(), "key1", time.Minute)
		_, _ = s.Increment(context.Background(), "key1", time.Minute)

		count, err := s.Increment(context.Background(), "key2", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "key2 should have its own counter")
	})

	t.Run("expires counters after ttl", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Increment(context.Background(), "key1", 50*time.Millisecond)
		_, _ = s.Increment(context.Background(), "key1", 50*time.Millisecond)

		time.Sleep(60 * time.Millisecond)

		count, err := s.Increment(context.Background(), "key1", 50*time.Millisecond)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "expired counter should restart")
	})

	t.Run("reset deletes keys", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Increment(context.Background(), "key1", time.Minute)
		_, _ = s.Increment(context.Background(), "key2", time.Minute)

		require.NoError(t, s.Reset(context.Background(), "key1"))

		assert.Equal(t, 1, s.Len())

		count, _ := s.Increment(context.Background(), "key1", time.Minute)
		assert.Equal(t, int64(1), count)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		var wg sync.WaitGroup

		seen := make([]int64, 200)

		for i := range 200 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				seen[i], _ = s.Increment(context.Background(), "shared", time.Minute)
			}()
		}

		wg.Wait()

		unique := make(map[int64]struct{}, len(seen))
		for _, v := range seen {
			unique[v] = struct{}{}
		}

		assert.Len(t, unique, 200, "every caller observes a distinct count")

		final, _ := s.Increment(context.Background(), "shared", time.Minute)
		assert.Equal(t, int64(201), final)
	})
}
