package store

import (
	"sort"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

// MemoryStore is the reference in-memory backend. It is constructed
// explicitly and passed by reference; there is no package-level instance.
// A single mutex serializes all writers.
type MemoryStore struct {
	mu     sync.Mutex
	msgs   map[int64]models.Message
	nextID int64
}

// NewMemoryStore returns an empty store seeded with the greeting message.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{msgs: make(map[int64]models.Message), nextID: 1}
	if _, err := s.Create(models.Draft{
		Content:       seedGreeting,
		Origin:        models.OriginSystem,
		DeliveryState: models.DeliveryRead,
	}); err != nil {
		// Create on a fresh memory store cannot fail; keep the log to catch
		// regressions in the contract.
		logger.Error("memory_seed_failed", "error", err)
	}
	return s
}

// List implements Store.
func (s *MemoryStore) List() ([]models.Message, error) {
	s.mu.Lock()
	out := make([]models.Message, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m)
	}
	s.mu.Unlock()
	sortMessages(out)
	return out, nil
}

// Create implements Store.
func (s *MemoryStore) Create(d models.Draft) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := d.DeliveryState
	if state == "" {
		state = models.DeliverySent
	}
	m := models.Message{
		ID:            s.nextID,
		Content:       d.Content,
		Origin:        d.Origin,
		Timestamp:     time.Now().UTC(),
		Edited:        false,
		EditedAt:      nil,
		DeliveryState: state,
	}
	s.nextID++
	s.msgs[m.ID] = m
	observeCreate(m.Origin)
	return m, nil
}

// Update implements Store.
func (s *MemoryStore) Update(id int64, content string, edited bool) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return models.Message{}, ErrNotFound
	}
	now := time.Now().UTC()
	m.Content = content
	m.Edited = edited
	m.EditedAt = &now
	s.msgs[id] = m
	observeUpdate()
	return m, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[id]; !ok {
		return false, nil
	}
	delete(s.msgs, id)
	observeDelete()
	return true, nil
}

// Close implements Store. The memory backend holds no resources.
func (s *MemoryStore) Close() error { return nil }

// sortMessages orders by timestamp ascending; ids break ties since they are
// monotonic with creation time.
func sortMessages(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
