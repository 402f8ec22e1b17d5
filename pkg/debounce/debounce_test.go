package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRunsLatestOnly(t *testing.T) {
	d := New(20 * time.Millisecond)

	var mu sync.Mutex
	var got []string
	for _, term := range []string{"a", "al", "ali"} {
		term := term
		d.Trigger("session-1", func() {
			mu.Lock()
			got = append(got, term)
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ali"}, got)
	assert.False(t, d.Pending("session-1"))
}

func TestKeysAreIndependent(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls int32

	d.Trigger("a", func() { atomic.AddInt32(&calls, 1) })
	d.Trigger("b", func() { atomic.AddInt32(&calls, 1) })

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
}

func TestCancelAndStop(t *testing.T) {
	d := New(20 * time.Millisecond)
	var calls int32

	d.Trigger("a", func() { atomic.AddInt32(&calls, 1) })
	assert.True(t, d.Cancel("a"))
	assert.False(t, d.Cancel("a"))

	d.Trigger("b", func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Trigger("c", func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
