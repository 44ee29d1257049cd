package textures

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryStoreSize bounds the number of identities a MemoryStore keeps.
const DefaultMemoryStoreSize = 100000

// MemoryStore is an in-process FreshnessStore backed by a bounded LRU.
// Records are lost on restart, which only costs a revalidation.
type MemoryStore struct {
	mu      sync.Mutex
	records *lru.Cache[string, FreshnessRecord]
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most size records.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}
	records, err := lru.New[string, FreshnessRecord](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		records: records,
		now:     time.Now,
	}, nil
}

// Get returns a copy of the record for key, or nil when absent.
func (m *MemoryStore) Get(_ context.Context, key string) (*FreshnessRecord, error) {
	rec, ok := m.records.Get(key)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Touch bumps LastChecked. A missing record is left missing.
func (m *MemoryStore) Touch(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records.Peek(key)
	if !ok {
		return nil
	}
	rec.LastChecked = m.now()
	m.records.Add(key, rec)
	return nil
}

// Put upserts the record.
func (m *MemoryStore) Put(_ context.Context, key, skinHash, capeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records.Add(key, FreshnessRecord{
		SkinHash:    skinHash,
		CapeHash:    capeHash,
		LastChecked: m.now(),
	})
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	return m.records.Len()
}
