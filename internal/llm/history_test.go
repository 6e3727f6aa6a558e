package llm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryHistoryStore_SnapshotEmpty(t *testing.T) {
	store := NewMemoryHistoryStore(10)
	ctx := context.Background()

	history, err := store.Snapshot(ctx, "+1555")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if history != nil {
		t.Fatalf("expected nil history, got: %v", history)
	}
}

func TestMemoryHistoryStore_AppendAndSnapshot(t *testing.T) {
	store := NewMemoryHistoryStore(10)
	ctx := context.Background()

	msg1 := Message{Role: RoleUser, Content: "Hello", Timestamp: time.Now()}
	msg2 := Message{Role: RoleAssistant, Content: "Hi", Timestamp: time.Now()}

	if err := store.Append(ctx, "+1555", msg1); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, "+1555", msg2); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	history, err := store.Snapshot(ctx, "+1555")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got: %d", len(history))
	}
	if history[0].Content != "Hello" || history[1].Content != "Hi" {
		t.Fatalf("unexpected order: %+v", history)
	}
}

func TestMemoryHistoryStore_TrimsOldestFirst(t *testing.T) {
	store := NewMemoryHistoryStore(10)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		msg := Message{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i), Timestamp: time.Now()}
		if err := store.Append(ctx, "+1555", msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	history, err := store.Snapshot(ctx, "+1555")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("expected history capped at 10, got: %d", len(history))
	}
	// Остались самые свежие 10 в исходном порядке: msg-2 .. msg-11.
	if history[0].Content != "msg-2" {
		t.Fatalf("expected oldest retained 'msg-2', got: %s", history[0].Content)
	}
	if history[9].Content != "msg-11" {
		t.Fatalf("expected newest 'msg-11', got: %s", history[9].Content)
	}
}

func TestMemoryHistoryStore_BatchAppendOverLimit(t *testing.T) {
	store := NewMemoryHistoryStore(3)
	ctx := context.Background()

	batch := make([]Message, 5)
	for i := range batch {
		batch[i] = Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}
	}
	if err := store.Append(ctx, "+1555", batch...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	history, _ := store.Snapshot(ctx, "+1555")
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got: %d", len(history))
	}
	if history[0].Content != "m2" || history[2].Content != "m4" {
		t.Fatalf("unexpected retained window: %+v", history)
	}
}

func TestMemoryHistoryStore_ZeroLimitNeverTrims(t *testing.T) {
	store := NewMemoryHistoryStore(0)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := store.Append(ctx, "+1555", Message{Role: RoleUser, Content: "x"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	history, _ := store.Snapshot(ctx, "+1555")
	if len(history) != 50 {
		t.Fatalf("expected 50 messages with no limit, got: %d", len(history))
	}
}

func TestMemoryHistoryStore_SnapshotIsACopy(t *testing.T) {
	store := NewMemoryHistoryStore(10)
	ctx := context.Background()

	if err := store.Append(ctx, "+1555", Message{Role: RoleUser, Content: "original"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	snapshot, _ := store.Snapshot(ctx, "+1555")
	snapshot[0].Content = "mutated"

	fresh, _ := store.Snapshot(ctx, "+1555")
	if fresh[0].Content != "original" {
		t.Fatalf("expected store unaffected by snapshot mutation, got: %s", fresh[0].Content)
	}
}

func TestMemoryHistoryStore_Concurrency(t *testing.T) {
	store := NewMemoryHistoryStore(0)
	ctx := context.Background()

	const workers = 10
	const perWorker = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				sender := fmt.Sprintf("+1%03d", w%3)
				_ = store.Append(ctx, sender, Message{Role: RoleUser, Content: "c"})
				_, _ = store.Snapshot(ctx, sender)
			}
		}(w)
	}
	wg.Wait()

	var total int
	for _, sender := range []string{"+1000", "+1001", "+1002"} {
		history, _ := store.Snapshot(ctx, sender)
		total += len(history)
	}
	if total != workers*perWorker {
		t.Fatalf("expected %d appended messages total, got: %d", workers*perWorker, total)
	}
}
