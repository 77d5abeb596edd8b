package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/testsupport"
)

func TestPushPopFIFO(t *testing.T) {
	q := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("Push(%s): %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if !ok || got != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, got, ok)
		}
	}

	if _, ok, err := q.Pop(ctx); err != nil || ok {
		t.Fatalf("expected empty queue, got ok=%v err=%v", ok, err)
	}
}

func TestDuplicateIDsDequeueIndependently(t *testing.T) {
	q := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := q.Push(ctx, "dup"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(ctx, "dup"); err != nil {
		t.Fatalf("Push duplicate: %v", err)
	}

	count, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}

	for i := 0; i < 2; i++ {
		got, ok, err := q.Pop(ctx)
		if err != nil || !ok || got != "dup" {
			t.Fatalf("pop %d: got %q ok=%v err=%v", i, got, ok, err)
		}
	}
}

func TestConcurrentPopsNeverDuplicate(t *testing.T) {
	q := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	// Second handle on the same file, standing in for another process
	// sharing the queue.
	other, err := queue.OpenPath(q.Path())
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = other.Close() })

	const pushed = 50
	for i := 0; i < pushed; i++ {
		if err := q.Push(ctx, fmt.Sprintf("topic-%02d", i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	var (
		mu     sync.Mutex
		popped []string
		wg     sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		worker := q
		if w%2 == 1 {
			worker = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id, ok, err := worker.Pop(ctx)
				if err != nil {
					t.Errorf("Pop: %v", err)
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				popped = append(popped, id)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(popped) != pushed {
		t.Fatalf("expected %d pops, got %d", pushed, len(popped))
	}
	seen := make(map[string]int, pushed)
	for _, id := range popped {
		seen[id]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("entry %s delivered %d times", id, count)
		}
	}
}

func TestPoppedEntryStaysGone(t *testing.T) {
	q := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := q.Push(ctx, "lost"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, ok, err := q.Pop(ctx); err != nil || !ok {
		t.Fatalf("first pop: ok=%v err=%v", ok, err)
	}

	// Consume-and-forget: a crash after pop must not resurrect the entry.
	if _, ok, err := q.Pop(ctx); err != nil || ok {
		t.Fatalf("expected entry permanently gone, got ok=%v err=%v", ok, err)
	}
}

func TestClear(t *testing.T) {
	q := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Push(ctx, fmt.Sprintf("t%d", i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	removed, err := q.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	entries, err := q.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty queue, got %d entries", len(entries))
	}
}
