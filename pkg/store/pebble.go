package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

// Key layout:
//   msg:<id padded to 20 digits>  -> message JSON
//   seq:msg                       -> next id, decimal
// Zero-padded ids keep pebble iteration in creation order.
const (
	msgKeyPrefix = "msg:"
	seqKey       = "seq:msg"
)

// PebbleStore is the durable backend satisfying the same contract as the
// memory store. All mutations go through a single mutex so writers are
// serialized exactly like the reference implementation.
type PebbleStore struct {
	mu     sync.Mutex
	db     *pebble.DB
	nextID int64
}

// OpenPebble opens (or creates) a pebble database at path. A database that
// holds no messages is seeded with the greeting, so the seed happens once
// per database lifetime, not once per process.
func OpenPebble(path string) (*PebbleStore, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	s := &PebbleStore{db: db, nextID: 1}
	if err := s.loadSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	empty, err := s.isEmpty()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if empty {
		if _, err := s.Create(models.Draft{
			Content:       seedGreeting,
			Origin:        models.OriginSystem,
			DeliveryState: models.DeliveryRead,
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to seed greeting: %w", err)
		}
	}
	logger.Info("pebble_opened", "path", path, "next_id", s.nextID)
	return s, nil
}

func (s *PebbleStore) loadSeq() error {
	v, closer, err := s.db.Get([]byte(seqKey))
	if err == pebble.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	n, perr := strconv.ParseInt(string(v), 10, 64)
	if perr != nil {
		return fmt.Errorf("corrupt id sequence %q: %w", string(v), perr)
	}
	s.nextID = n
	return nil
}

func (s *PebbleStore) isEmpty() (bool, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return false, err
	}
	defer iter.Close()
	prefix := []byte(msgKeyPrefix)
	iter.SeekGE(prefix)
	return !(iter.Valid() && bytes.HasPrefix(iter.Key(), prefix)), iter.Error()
}

func msgKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", msgKeyPrefix, id))
}

// List implements Store.
func (s *PebbleStore) List() ([]models.Message, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	prefix := []byte(msgKeyPrefix)
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("pebble_decode_failed", "key", string(iter.Key()), "error", err)
			return nil, fmt.Errorf("corrupt message at %s: %w", string(iter.Key()), err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	// Key order equals id order; re-sort by timestamp to honor the listing
	// contract when clocks and ids ever disagree.
	sortMessages(out)
	if out == nil {
		out = []models.Message{}
	}
	return out, nil
}

// Create implements Store.
func (s *PebbleStore) Create(d models.Draft) (models.Message, error) {
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
		DeliveryState: state,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	b := s.db.NewBatch()
	if err := b.Set(msgKey(m.ID), data, nil); err != nil {
		return models.Message{}, err
	}
	if err := b.Set([]byte(seqKey), []byte(strconv.FormatInt(m.ID+1, 10)), nil); err != nil {
		return models.Message{}, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("pebble_save_failed", "id", m.ID, "error", err)
		return models.Message{}, err
	}
	s.nextID = m.ID + 1
	observeCreate(m.Origin)
	return m, nil
}

// Update implements Store.
func (s *PebbleStore) Update(id int64, content string, edited bool) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.get(id)
	if err != nil {
		return models.Message{}, err
	}
	now := time.Now().UTC()
	m.Content = content
	m.Edited = edited
	m.EditedAt = &now
	data, merr := json.Marshal(m)
	if merr != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", merr)
	}
	if err := s.db.Set(msgKey(id), data, pebble.Sync); err != nil {
		logger.Error("pebble_update_failed", "id", id, "error", err)
		return models.Message{}, err
	}
	observeUpdate()
	return m, nil
}

// Delete implements Store.
func (s *PebbleStore) Delete(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(id); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if err := s.db.Delete(msgKey(id), pebble.Sync); err != nil {
		logger.Error("pebble_delete_failed", "id", id, "error", err)
		return false, err
	}
	observeDelete()
	return true, nil
}

func (s *PebbleStore) get(id int64) (models.Message, error) {
	v, closer, err := s.db.Get(msgKey(id))
	if err == pebble.ErrNotFound {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	defer closer.Close()
	var m models.Message
	if err := json.Unmarshal(v, &m); err != nil {
		return models.Message{}, fmt.Errorf("corrupt message %d: %w", id, err)
	}
	return m, nil
}

// Close implements Store.
func (s *PebbleStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	logger.Info("pebble_closed")
	return err
}
