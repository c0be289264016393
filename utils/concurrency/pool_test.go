package concurrency

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {

	t.Run("RunsAllTasks", func(t *testing.T) {
		pool := NewPool(make([]struct{}, 4))
		var count atomic.Int64
		for i := 0; i < 100; i++ {
			pool.Run(func(struct{}) error {
				count.Add(1)
				return nil
			})
		}
		require.NoError(t, pool.Wait())
		require.Equal(t, int64(100), count.Load())
	})

	t.Run("ResourcesAreExclusive", func(t *testing.T) {
		// Each task increments its scratch counter; the sum over all
		// resources must equal the number of tasks.
		counters := []*atomic.Int64{{}, {}, {}}
		pool := NewPool(counters)
		for i := 0; i < 60; i++ {
			pool.Run(func(c *atomic.Int64) error {
				c.Add(1)
				return nil
			})
		}
		require.NoError(t, pool.Wait())
		var total int64
		for _, c := range counters {
			total += c.Load()
		}
		require.Equal(t, int64(60), total)
	})

	t.Run("PropagatesError", func(t *testing.T) {
		pool := NewPool(make([]struct{}, 2))
		for i := 0; i < 10; i++ {
			i := i
			pool.Run(func(struct{}) error {
				if i == 3 {
					return fmt.Errorf("task %d failed", i)
				}
				return nil
			})
		}
		require.Error(t, pool.Wait())
	})
}
