package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/ringside/internal/domain/model"
)

func job(bout string, round int) Job {
	return model.RescoreRequest{BoutID: bout, Round: round}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("b1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.BoutID != "b1" || got.Round != 1 {
		t.Errorf("expected b1/1, got %+v", got)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Coalescing(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, job("b1", 2)) {
			t.Fatalf("enqueue %d of a pending round should be absorbed", i)
		}
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected one pending job, got %d", l)
	}

	if !q.Enqueue(ctx, job("b1", 3)) {
		t.Error("expected a different round to queue")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected two pending jobs, got %d", l)
	}
}

func TestInMemoryQueue_RequeueAfterDelivery(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, job("b1", 1))
	<-q.Dequeue(ctx)

	if !q.Enqueue(ctx, job("b1", 1)) {
		t.Fatal("expected enqueue to succeed once the earlier job was delivered")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("b1", 1)) || !q.Enqueue(ctx, job("b1", 2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("b1", 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job("b1", 1)) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(64))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers = 8
	const rounds = 50

	var seen sync.Map
	out := q.Dequeue(ctx)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for j := range out {
			seen.Store(j.Key(), true)
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for r := 1; r <= rounds; r++ {
				j := job(fmt.Sprintf("bout-%d", id), r)
				for !q.Enqueue(ctx, j) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for q.Len(ctx) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = q.Close()
	<-consumed

	for p := 0; p < producers; p++ {
		key := job(fmt.Sprintf("bout-%d", p), rounds).Key()
		if _, ok := seen.Load(key); !ok {
			t.Errorf("job %s never delivered", key)
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	q.Enqueue(ctx, job("b1", 1))
	q.Enqueue(ctx, job("b1", 2))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job("b1", 3)) {
		t.Error("expected enqueue to fail after closing")
	}

	// Buffered jobs drain, then the channel closes.
	drained := 0
	timeout := time.After(time.Second)
	out := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				if drained != 2 {
					t.Errorf("expected 2 drained jobs, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
