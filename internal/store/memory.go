package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	lists  map[int64]DistributionList
	nextID int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:  make(map[int64]DistributionList),
		nextID: 1,
	}
}

// ListDistributionLists returns all lists ordered by id.
func (m *MemoryStore) ListDistributionLists(ctx context.Context) ([]DistributionList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]DistributionList, 0, len(m.lists))
	for _, l := range m.lists {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetDistributionList retrieves a list by id.
func (m *MemoryStore) GetDistributionList(ctx context.Context, id int64) (*DistributionList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// GetDistributionListByAlias retrieves a list by alias.
func (m *MemoryStore) GetDistributionListByAlias(ctx context.Context, alias string) (*DistributionList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.lists {
		if l.Alias == alias {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

// CreateDistributionList stores a new list and assigns its id.
func (m *MemoryStore) CreateDistributionList(ctx context.Context, params CreateParams) (*DistributionList, error) {
	senders, err := normalizeQuery(params.SendersQuery)
	if err != nil {
		return nil, err
	}
	recipients, err := normalizeQuery(params.RecipientsQuery)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.aliasTakenLocked(params.Alias, 0) {
		return nil, ErrAliasTaken
	}

	l := DistributionList{
		ID:              m.nextID,
		Alias:           params.Alias,
		Flags:           params.Flags,
		SendersQuery:    senders,
		RecipientsQuery: recipients,
		UpdatedAt:       time.Now().UTC(),
	}
	m.nextID++
	m.lists[l.ID] = l
	return &l, nil
}

// UpdateDistributionList changes alias and flags.
func (m *MemoryStore) UpdateDistributionList(ctx context.Context, id int64, params UpdateParams) (*DistributionList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.aliasTakenLocked(params.Alias, id) {
		return nil, ErrAliasTaken
	}
	l.Alias = params.Alias
	l.Flags = params.Flags
	l.UpdatedAt = time.Now().UTC()
	m.lists[id] = l
	return &l, nil
}

// SetQuery replaces the query in one slot.
func (m *MemoryStore) SetQuery(ctx context.Context, id int64, slot Slot, query json.RawMessage) (*DistributionList, error) {
	if _, err := ParseSlot(string(slot)); err != nil {
		return nil, err
	}
	normalized, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	if slot == SlotSenders {
		l.SendersQuery = normalized
	} else {
		l.RecipientsQuery = normalized
	}
	l.UpdatedAt = time.Now().UTC()
	m.lists[id] = l
	return &l, nil
}

// DeleteDistributionList removes a list from memory.
func (m *MemoryStore) DeleteDistributionList(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: no error if the list doesn't exist
	delete(m.lists, id)
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) aliasTakenLocked(alias string, exceptID int64) bool {
	for id, l := range m.lists {
		if id != exceptID && l.Alias == alias {
			return true
		}
	}
	return false
}
