package offline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the operation kind replayed against the store.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Operation is one queued mutation. Payload always carries the entity id
// so offline-created entities can be referenced by later operations
// before they exist remotely.
type Operation struct {
	ID        string                 `json:"id"`
	Table     string                 `json:"table"`
	Kind      Kind                   `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
	Synced    bool                   `json:"synced"`
}

// Store is the durable queue boundary. ListUnsynced returns operations in
// ascending timestamp order; that ordering is the only causal-consistency
// guarantee the sync pass relies on.
type Store interface {
	Enqueue(ctx context.Context, op Operation) (string, error)
	ListUnsynced(ctx context.Context) ([]Operation, error)
	MarkSynced(ctx context.Context, id string) error
	PurgeSynced(ctx context.Context) error
	CountUnsynced(ctx context.Context) (int, error)
}

// MemoryStore keeps the queue in process memory. It is the fallback when
// Redis is unavailable; queued operations then survive only as long as
// the process does.
type MemoryStore struct {
	mu  sync.Mutex
	ops map[string]Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]Operation)}
}

func (m *MemoryStore) Enqueue(_ context.Context, op Operation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}
	op.Synced = false
	m.ops[op.ID] = op
	return op.ID, nil
}

func (m *MemoryStore) ListUnsynced(_ context.Context) ([]Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Operation
	for _, op := range m.ops {
		if !op.Synced {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		// Equal timestamps replay in ID order, matching the Redis
		// store's equal-score member ordering.
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) MarkSynced(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.ops[id]; ok {
		op.Synced = true
		m.ops[id] = op
	}
	return nil
}

func (m *MemoryStore) PurgeSynced(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, op := range m.ops {
		if op.Synced {
			delete(m.ops, id)
		}
	}
	return nil
}

func (m *MemoryStore) CountUnsynced(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, op := range m.ops {
		if !op.Synced {
			count++
		}
	}
	return count, nil
}
