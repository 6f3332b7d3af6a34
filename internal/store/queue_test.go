package store

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestQueue(t *testing.T) (*miniredis.Miniredis, *IngestionQueue) {
	t.Helper()
	mr, client := newTestClient(t)
	return mr, NewIngestionQueue(client, "narrative:queue", "narrative:processing")
}

func TestQueueAddDeduplicates(t *testing.T) {
	ctx := context.Background()
	mr, q := newTestQueue(t)

	first, err := q.Add(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := q.Add(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if first.Status != AddStatusQueued {
		t.Errorf("first Add status = %q, want queued", first.Status)
	}
	if second.Status != AddStatusSkipped || second.Reason != ReasonAlreadyQueued {
		t.Errorf("second Add = %+v, want skipped/already_queued", second)
	}
	items, err := mr.List("narrative:queue")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0] != "AAPL" {
		t.Errorf("queue = %v, want [AAPL]", items)
	}
}

func TestQueueConcurrentAddQueuesOnce(t *testing.T) {
	ctx := context.Background()
	mr, q := newTestQueue(t)

	const callers = 16
	results := make(chan AddStatus, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := q.Add(ctx, "MSFT")
			if err != nil {
				t.Errorf("Add() error = %v", err)
				return
			}
			results <- res.Status
		}()
	}
	wg.Wait()
	close(results)

	queued := 0
	for s := range results {
		if s == AddStatusQueued {
			queued++
		}
	}
	if queued != 1 {
		t.Errorf("queued = %d, want 1", queued)
	}
	items, _ := mr.List("narrative:queue")
	if len(items) != 1 {
		t.Errorf("queue length = %d, want 1", len(items))
	}
}

func TestQueuePopIsFIFOAndKeepsInFlight(t *testing.T) {
	ctx := context.Background()
	_, q := newTestQueue(t)

	for _, ticker := range []string{"AAPL", "GOOGL", "TSLA"} {
		if _, err := q.Add(ctx, ticker); err != nil {
			t.Fatalf("Add(%s) error = %v", ticker, err)
		}
	}

	ticker, ok, err := q.Pop(ctx)
	if err != nil || !ok {
		t.Fatalf("Pop() = %q, %v, %v", ticker, ok, err)
	}
	if ticker != "AAPL" {
		t.Errorf("Pop() = %q, want AAPL", ticker)
	}

	// Popped but not completed: still reserved.
	res, err := q.Add(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != AddStatusSkipped {
		t.Errorf("Add after Pop = %q, want skipped", res.Status)
	}

	if err := q.Complete(ctx, "AAPL"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	res, err = q.Add(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != AddStatusQueued {
		t.Errorf("Add after Complete = %q, want queued", res.Status)
	}

	n, err := q.Length(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Length() = %d, want 3", n)
	}

	next, _, _ := q.Pop(ctx)
	if next != "GOOGL" {
		t.Errorf("second Pop() = %q, want GOOGL", next)
	}
}

func TestQueuePopEmpty(t *testing.T) {
	ctx := context.Background()
	_, q := newTestQueue(t)

	ticker, ok, err := q.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if ok || ticker != "" {
		t.Errorf("Pop() on empty queue = %q, %v", ticker, ok)
	}
	n, err := q.Length(ctx)
	if err != nil || n != 0 {
		t.Errorf("Length() = %d, %v", n, err)
	}
}

func TestQueueInFlight(t *testing.T) {
	ctx := context.Background()
	_, q := newTestQueue(t)

	_, _ = q.Add(ctx, "AAPL")
	_, _ = q.Add(ctx, "NVDA")
	_, _, _ = q.Pop(ctx)

	members, err := q.InFlight(ctx)
	if err != nil {
		t.Fatalf("InFlight() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("InFlight() = %v, want 2 members", members)
	}
}

func TestQueueRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, q := newTestQueue(t)
	mr.Close()

	if _, err := q.Add(ctx, "AAPL"); err == nil {
		t.Error("Add() with redis down succeeded")
	}
	if _, _, err := q.Pop(ctx); err == nil {
		t.Error("Pop() with redis down succeeded")
	}
}

func TestQueueUnconfigured(t *testing.T) {
	_, client := newTestClient(t)
	q := NewIngestionQueue(client, "", "")
	if _, err := q.Add(context.Background(), "AAPL"); err == nil {
		t.Error("Add() without keys succeeded")
	}
}

func TestQueueAddRollsBackMarkerWhenPushFails(t *testing.T) {
	ctx := context.Background()
	mr, q := newTestQueue(t)

	// A string at the queue key makes LPUSH fail with WRONGTYPE.
	if err := mr.Set("narrative:queue", "garbage"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Add(ctx, "AAPL"); err == nil {
		t.Fatal("Add() succeeded with a non-list queue key")
	}
	if mr.Exists("narrative:processing") {
		members, _ := mr.Members("narrative:processing")
		t.Fatalf("in-flight after failed Add = %v, want empty", members)
	}

	mr.Del("narrative:queue")
	res, err := q.Add(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if res.Status != AddStatusQueued {
		t.Errorf("retry Add status = %q, want queued", res.Status)
	}
	if n, _ := q.Length(ctx); n != 1 {
		t.Errorf("Length() = %d, want 1", n)
	}
}
