package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetFIFO(t *testing.T) {
	q := New(4)
	q.Put(1)
	q.Put(2)
	q.Put(3)

	v1, err := q.Get(time.Second)
	require.NoError(t, err)
	v2, err := q.Get(time.Second)
	require.NoError(t, err)
	v3, err := q.Get(time.Second)
	require.NoError(t, err)

	assert.Equal(t, []any{1, 2, 3}, []any{v1, v2, v3})
}

func TestGetTimesOutWhenEmpty(t *testing.T) {
	q := New(4)
	_, err := q.Get(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPutBlocksWhenFull(t *testing.T) {
	q := New(1)
	q.Put("a")

	putReturned := make(chan struct{})
	go func() {
		q.Put("b") // should block until "a" is drained
		close(putReturned)
	}()

	select {
	case <-putReturned:
		t.Fatal("Put returned before queue had room")
	case <-time.After(30 * time.Millisecond):
	}

	_, err := q.Get(time.Second)
	require.NoError(t, err)

	select {
	case <-putReturned:
	case <-time.After(time.Second):
		t.Fatal("Put never unblocked after room freed")
	}
}

func TestJoinWaitsForTaskDone(t *testing.T) {
	q := New(4)
	q.Put(1)
	q.Put(2)

	joinReturned := make(chan struct{})
	go func() {
		q.Join()
		close(joinReturned)
	}()

	select {
	case <-joinReturned:
		t.Fatal("Join returned before all items acknowledged")
	case <-time.After(20 * time.Millisecond):
	}

	_, _ = q.Get(time.Second)
	q.TaskDone()
	_, _ = q.Get(time.Second)
	q.TaskDone()

	select {
	case <-joinReturned:
	case <-time.After(time.Second):
		t.Fatal("Join never returned after all TaskDone calls")
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New(8)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Put(i)
		}(i)
	}

	seen := make(chan int, n)
	var consumers sync.WaitGroup
	for c := 0; c < 8; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				v, err := q.Get(50 * time.Millisecond)
				if err != nil {
					if q.Empty() {
						return
					}
					continue
				}
				seen <- v.(int)
				q.TaskDone()
			}
		}()
	}

	wg.Wait()
	q.Join()
	consumers.Wait()
	close(seen)

	count := 0
	for range seen {
		count++
	}
	assert.Equal(t, n, count)
}
