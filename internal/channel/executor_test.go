package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecutorRunsTasksInOrder(t *testing.T) {
	e := NewExecutor("test")
	defer e.Shutdown()

	var mu sync.Mutex
	var order []int
	for i := range 100 {
		e.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	e.Call(func() {})

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
	assert.Len(t, order, 100)
}

func TestExecutorCallBlocksUntilDone(t *testing.T) {
	e := NewExecutor("test")
	defer e.Shutdown()

	ran := false
	ok := e.Call(func() {
		time.Sleep(10 * time.Millisecond)
		ran = true
	})
	assert.True(t, ok)
	assert.True(t, ran)

	assert.Equal(t, 42, callResult(e, -1, func() int { return 42 }))
}

func TestExecutorShutdownDrainsQueue(t *testing.T) {
	e := NewExecutor("test")

	release := make(chan struct{})
	e.Submit(func() { <-release })

	count := 0
	for range 10 {
		e.Submit(func() { count++ })
	}

	done := make(chan struct{})
	go func() {
		e.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned while a task was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	assert.Equal(t, 10, count)

	assert.False(t, e.Submit(func() {}))
	assert.False(t, e.Call(func() {}))
	assert.Equal(t, -1, callResult(e, -1, func() int { return 1 }))

	// second shutdown returns immediately
	e.Shutdown()
}

func TestExecutorSurvivesPanics(t *testing.T) {
	e := NewExecutor("test")
	defer e.Shutdown()

	e.Submit(func() { panic("boom") })
	assert.Equal(t, "alive", callResult(e, "dead", func() string { return "alive" }))
}

func TestIDAllocatorIsMonotonic(t *testing.T) {
	ids := NewIDAllocator()
	assert.Equal(t, InvalidSourceID, ids.Last())

	prev := InvalidSourceID
	for range 50 {
		next := ids.Next()
		if next <= prev {
			t.Fatalf("id %d not greater than %d", next, prev)
		}
		prev = next
	}
	assert.Equal(t, prev, ids.Last())
}

func TestChannelsHaveIndependentIDs(t *testing.T) {
	a, _, _ := newTestChannel(t)
	b, _, _ := newTestChannel(t)

	assert.Equal(t, SourceID(1), a.SetSourceURL("a.mp3", SourceOptions{}))
	assert.Equal(t, SourceID(1), b.SetSourceURL("a.mp3", SourceOptions{}))

	shared := NewIDAllocator()
	c, _, _ := newTestChannel(t, WithIDAllocator(shared))
	d, _, _ := newTestChannel(t, WithIDAllocator(shared))
	assert.Equal(t, SourceID(1), c.SetSourceURL("a.mp3", SourceOptions{}))
	assert.Equal(t, SourceID(2), d.SetSourceURL("a.mp3", SourceOptions{}))
}

func TestOffsetHistoryIsBounded(t *testing.T) {
	var h offsetHistory
	for i := 1; i <= 100; i++ {
		h.remember(SourceID(i), time.Duration(i)*time.Second)
	}

	_, ok := h.lookup(1)
	assert.False(t, ok)

	got, ok := h.lookup(100)
	assert.True(t, ok)
	assert.Equal(t, 100*time.Second, got)
	assert.LessOrEqual(t, len(h.offsets), retainedOffsets)

	h.remember(InvalidSourceID, time.Second)
	_, ok = h.lookup(InvalidSourceID)
	assert.False(t, ok)
}
