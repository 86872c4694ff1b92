package executor

import (
	"context"
	"sync"

	"github.com/agentcommerce/x402-a2a/types"
)

// RequirementsStore holds the accepts list offered for each task between
// the payment-required turn and the paid turn. It is the one piece of
// protocol state not carried on the wire: a payer must not be able to
// replay requirements the merchant never offered.
//
// Take must be atomic: of two concurrent calls for the same task id at most
// one may observe the entry. The server executor relies on this to keep
// settlement at-most-once per task.
type RequirementsStore interface {
	// Put stores the accepts list offered for a task.
	Put(ctx context.Context, taskID string, accepts []types.PaymentRequirements) error

	// Take atomically removes and returns the accepts list for a task.
	Take(ctx context.Context, taskID string) ([]types.PaymentRequirements, bool, error)

	// Get returns the accepts list without consuming it.
	Get(ctx context.Context, taskID string) ([]types.PaymentRequirements, bool, error)
}

// MemoryStore is the default in-process RequirementsStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]types.PaymentRequirements
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]types.PaymentRequirements)}
}

// Put implements RequirementsStore.
func (s *MemoryStore) Put(_ context.Context, taskID string, accepts []types.PaymentRequirements) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[taskID] = accepts
	return nil
}

// Take implements RequirementsStore.
func (s *MemoryStore) Take(_ context.Context, taskID string) ([]types.PaymentRequirements, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepts, ok := s.entries[taskID]
	if ok {
		delete(s.entries, taskID)
	}
	return accepts, ok, nil
}

// Get implements RequirementsStore.
func (s *MemoryStore) Get(_ context.Context, taskID string) ([]types.PaymentRequirements, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepts, ok := s.entries[taskID]
	return accepts, ok, nil
}

// Len reports how many tasks currently have stored requirements.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
