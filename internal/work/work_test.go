package work

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWrapAround(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 8; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{4, 5, 6, 7}, r.Snapshot())
	assert.Equal(t, []int{6, 7}, r.Last(2))
	assert.Equal(t, 4, r.Len())
	assert.Nil(t, r.Last(0))

	r.Reset()
	assert.Zero(t, r.Len())
	assert.Nil(t, r.Snapshot())
}

func TestRingLastMoreThanCount(t *testing.T) {
	r := NewRing[string](8)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"a", "b"}, r.Last(10))
	assert.Equal(t, 8, r.Cap())
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 5; i++ {
		v, ok, open := q.Recv(time.Second)
		require.True(t, ok)
		require.True(t, open)
		assert.Equal(t, i, v)
	}
}

func TestQueueRecvTimeout(t *testing.T) {
	q := NewQueue[int]()
	start := time.Now()
	_, ok, open := q.Recv(20 * time.Millisecond)
	assert.False(t, ok)
	assert.True(t, open)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueCloseDrainsFirst(t *testing.T) {
	q := NewQueue[string]()
	q.Push("last")
	q.Close()
	assert.False(t, q.Push("ignored"))

	v, ok, open := q.Recv(time.Second)
	require.True(t, ok)
	assert.True(t, open)
	assert.Equal(t, "last", v)

	_, ok, open = q.Recv(time.Second)
	assert.False(t, ok)
	assert.False(t, open)
}

func TestQueueWakesWaitingReceiver(t *testing.T) {
	q := NewQueue[int]()
	got := make(chan int, 1)
	go func() {
		v, _, _ := q.Recv(5 * time.Second)
		got <- v
	}()
	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver not woken")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Len())
	assert.Len(t, q.Drain(), 1000)
	assert.Zero(t, q.Len())
}

func TestTaskResultBeforeStreamEnds(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context, emit func(string)) int {
		emit("one")
		emit("two")
		return 7
	}, func(r int) string { return "done" })

	var seen []string
	for {
		v, ok, open := task.Events().Recv(time.Second)
		if !open {
			break
		}
		if ok {
			seen = append(seen, v)
		}
	}
	assert.Equal(t, []string{"one", "two", "done"}, seen)

	// Stream closed, so the result must already be available.
	r, ok := task.TryResult()
	require.True(t, ok)
	assert.Equal(t, 7, r)

	r, err := task.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, r)
}

func TestTaskCancel(t *testing.T) {
	started := make(chan struct{})
	task := Go(context.Background(), func(ctx context.Context, emit func(int)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	<-started
	task.Cancel()
	task.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := task.Result(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, r, context.Canceled)
}

func TestTaskResultRespectsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	task := Go(context.Background(), func(ctx context.Context, emit func(int)) int {
		<-block
		return 1
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := task.Result(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := task.TryResult()
	assert.False(t, ok)
}
