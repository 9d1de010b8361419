package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStorageStateAndData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	key := StorageKey{ChatID: 1, UserID: 2}
	other := StorageKey{ChatID: 1, UserID: 3}

	if state, err := storage.State(ctx, key); err != nil || state != "" {
		t.Fatalf("State() = %q, %v, want empty", state, err)
	}
	if err := storage.SetState(ctx, key, "step"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if err := storage.SetData(ctx, key, map[string]string{"name": "Ann"}); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	data, err := storage.Data(ctx, key)
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	data["name"] = "mutated"
	again, _ := storage.Data(ctx, key)
	if again["name"] != "Ann" {
		t.Fatalf("Data() leaked internal map, name = %q", again["name"])
	}
	if state, _ := storage.State(ctx, other); state != "" {
		t.Fatalf("other key state = %q, want empty", state)
	}

	state := NewStateContext(storage, key)
	if err := state.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if storage.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after clear", storage.Len())
	}
}

func TestMemoryStorageRejectsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	storage := NewMemoryStorage()

	if _, err := storage.State(ctx, StorageKey{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("State error = %v, want context.Canceled", err)
	}
	if err := storage.SetState(ctx, StorageKey{}, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("SetState error = %v, want context.Canceled", err)
	}
	if _, err := storage.Data(ctx, StorageKey{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Data error = %v, want context.Canceled", err)
	}
	if err := storage.SetData(ctx, StorageKey{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("SetData error = %v, want context.Canceled", err)
	}
}

func TestStateContextUpdateDataMerges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := NewStateContext(NewMemoryStorage(), StorageKey{ChatID: 5, UserID: 5})

	if _, err := state.UpdateData(ctx, map[string]string{"name": "Ann"}); err != nil {
		t.Fatalf("UpdateData failed: %v", err)
	}
	data, err := state.UpdateData(ctx, map[string]string{"age": "30"})
	if err != nil {
		t.Fatalf("UpdateData failed: %v", err)
	}
	if data["name"] != "Ann" || data["age"] != "30" {
		t.Fatalf("data = %v, want merged name and age", data)
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()

	var wg sync.WaitGroup
	for idx := 0; idx < 16; idx++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			state := NewStateContext(storage, StorageKey{ChatID: 1, UserID: user})
			for step := 0; step < 50; step++ {
				_ = state.Set(ctx, "busy")
				_, _ = state.UpdateData(ctx, map[string]string{"step": "x"})
				_, _ = state.Get(ctx)
			}
		}(int64(idx))
	}
	wg.Wait()

	if storage.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", storage.Len())
	}
	if err := storage.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if storage.Len() != 0 {
		t.Fatalf("Len() = %d after close, want 0", storage.Len())
	}
}
