package lookup

import (
	"context"
	"sync"

	"github.com/ferro-labs/faceslots/providers"
)

type bindingKey struct {
	watchFace string
	slotID    int
}

// Memory is an in-process Backend. Slots are unknown until declared or
// bound.
type Memory struct {
	mu       sync.RWMutex
	bindings map[bindingKey]*providers.Info
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{bindings: make(map[bindingKey]*providers.Info)}
}

// Name implements Backend.
func (m *Memory) Name() string { return "memory" }

// Open implements Backend.
func (m *Memory) Open(context.Context) error { return nil }

// Close implements Backend.
func (m *Memory) Close() error { return nil }

// Lookup implements Backend.
func (m *Memory) Lookup(ctx context.Context, watchFace string, slotID int) (*providers.Info, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.bindings[bindingKey{watchFace, slotID}]
	return info.Clone(), ok, nil
}

// Bind implements Backend.
func (m *Memory) Bind(_ context.Context, watchFace string, slotID int, info *providers.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[bindingKey{watchFace, slotID}] = info.Clone()
	return nil
}

// Declare implements Backend. Already-bound slots keep their binding.
func (m *Memory) Declare(_ context.Context, watchFace string, slotIDs ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range slotIDs {
		k := bindingKey{watchFace, id}
		if _, ok := m.bindings[k]; !ok {
			m.bindings[k] = nil
		}
	}
	return nil
}
