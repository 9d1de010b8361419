package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// State names one step of a conversation state machine. The empty state means
// no conversation is in progress.
type State string

// StorageKey addresses conversation state of one user inside one chat.
type StorageKey struct {
	ChatID int64
	UserID int64
}

// Storage persists conversation state and its attached data.
//
// Implementations must be concurrency-safe; returned data maps are copies.
type Storage interface {
	// State returns the current state for key, or the empty state.
	State(ctx context.Context, key StorageKey) (State, error)
	// SetState replaces the current state for key.
	SetState(ctx context.Context, key StorageKey, state State) error
	// Data returns a copy of the data attached to key.
	Data(ctx context.Context, key StorageKey) (map[string]string, error)
	// SetData replaces the data attached to key.
	SetData(ctx context.Context, key StorageKey, data map[string]string) error
	// Close releases storage resources.
	Close(ctx context.Context) error
}

type memoryRecord struct {
	state State
	data  map[string]string
}

// MemoryStorage keeps conversation state in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[StorageKey]*memoryRecord
}

// NewMemoryStorage creates an empty in-memory state storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[StorageKey]*memoryRecord),
	}
}

// State returns the current state for key.
func (s *MemoryStorage) State(ctx context.Context, key StorageKey) (State, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("memory storage state: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[key]
	if !exists {
		return "", nil
	}

	return record.state, nil
}

// SetState replaces the current state for key.
func (s *MemoryStorage) SetState(ctx context.Context, key StorageKey, state State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory storage set state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordLocked(key).state = state
	s.pruneLocked(key)

	return nil
}

// Data returns a copy of the data attached to key.
func (s *MemoryStorage) Data(ctx context.Context, key StorageKey) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory storage data: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[key]
	if !exists {
		return map[string]string{}, nil
	}

	return cloneData(record.data), nil
}

// SetData replaces the data attached to key.
func (s *MemoryStorage) SetData(ctx context.Context, key StorageKey, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory storage set data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordLocked(key).data = cloneData(data)
	s.pruneLocked(key)

	return nil
}

// Close drops all stored conversations.
func (s *MemoryStorage) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[StorageKey]*memoryRecord)

	return nil
}

// Len reports how many conversations currently hold state or data.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func (s *MemoryStorage) recordLocked(key StorageKey) *memoryRecord {
	record, exists := s.records[key]
	if !exists {
		record = &memoryRecord{}
		s.records[key] = record
	}

	return record
}

// pruneLocked removes records that no longer carry state or data.
func (s *MemoryStorage) pruneLocked(key StorageKey) {
	record, exists := s.records[key]
	if !exists {
		return
	}
	if record.state == "" && len(record.data) == 0 {
		delete(s.records, key)
	}
}

func cloneData(data map[string]string) map[string]string {
	cloned := make(map[string]string, len(data))
	for key, value := range data {
		cloned[key] = value
	}

	return cloned
}

// StateContext binds a Storage to the conversation of the current update.
type StateContext struct {
	storage Storage
	key     StorageKey
}

// NewStateContext creates a state accessor for one conversation key.
func NewStateContext(storage Storage, key StorageKey) *StateContext {
	return &StateContext{storage: storage, key: key}
}

// Key returns the conversation key this context is bound to.
func (s *StateContext) Key() StorageKey {
	return s.key
}

// Get returns the current conversation state.
func (s *StateContext) Get(ctx context.Context) (State, error) {
	state, err := s.storage.State(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}

	return state, nil
}

// Set moves the conversation to state.
func (s *StateContext) Set(ctx context.Context, state State) error {
	if err := s.storage.SetState(ctx, s.key, state); err != nil {
		return fmt.Errorf("set state %q: %w", state, err)
	}

	return nil
}

// Data returns a copy of the conversation data.
func (s *StateContext) Data(ctx context.Context) (map[string]string, error) {
	data, err := s.storage.Data(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("get state data: %w", err)
	}

	return data, nil
}

// UpdateData merges values into the conversation data and returns the result.
func (s *StateContext) UpdateData(ctx context.Context, values map[string]string) (map[string]string, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	for key, value := range values {
		data[key] = value
	}
	if err := s.storage.SetData(ctx, s.key, data); err != nil {
		return nil, fmt.Errorf("update state data: %w", err)
	}

	return data, nil
}

// Clear resets both state and data of the conversation.
func (s *StateContext) Clear(ctx context.Context) error {
	if err := s.storage.SetState(ctx, s.key, ""); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	if err := s.storage.SetData(ctx, s.key, nil); err != nil {
		return fmt.Errorf("clear state data: %w", err)
	}

	return nil
}
