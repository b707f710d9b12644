package mem

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
)

// Store is the in-memory implementation of ports.Store. Records are held
// in a map with a separate insertion-order list; a secondary index maps
// secondary ids to primary keys. Reads take the shared lock only.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*models.ResourceRecord
	order     []string
	secondary map[string]string
	closed    bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records:   make(map[string]*models.ResourceRecord),
		secondary: make(map[string]string),
	}
}

var _ ports.Store = (*Store)(nil)

// Get returns a copy of the record stored under key.
func (s *Store) Get(ctx context.Context, key string) (*models.ResourceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, errors.New("store is closed")
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return rec.DeepCopy(), true, nil
}

// GetBySecondaryID returns a copy of the record carrying secondaryID.
func (s *Store) GetBySecondaryID(ctx context.Context, secondaryID string) (*models.ResourceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, errors.New("store is closed")
	}
	key, ok := s.secondary[secondaryID]
	if !ok {
		return nil, false, nil
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return rec.DeepCopy(), true, nil
}

// Set stores a copy of rec under key. A replaced key keeps its insertion
// position; a replaced record's secondary id is re-pointed.
func (s *Store) Set(ctx context.Context, key string, rec *models.ResourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("store is closed")
	}
	prev, existed := s.records[key]
	if existed && prev.Identity.SecondaryID != rec.Identity.SecondaryID {
		delete(s.secondary, prev.Identity.SecondaryID)
	}
	if !existed {
		s.order = append(s.order, key)
	}
	s.records[key] = rec.DeepCopy()
	if rec.Identity.SecondaryID != "" {
		s.secondary[rec.Identity.SecondaryID] = key
	}
	return nil
}

// Delete removes the record under key; absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("store is closed")
	}
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	delete(s.records, key)
	delete(s.secondary, rec.Identity.SecondaryID)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Iterate visits copies of all records in insertion order.
func (s *Store) Iterate(ctx context.Context, consume func(*models.ResourceRecord) error) error {
	s.mu.RLock()
	snapshot := make([]*models.ResourceRecord, 0, len(s.order))
	for _, key := range s.order {
		if rec, ok := s.records[key]; ok {
			snapshot = append(snapshot, rec.DeepCopy())
		}
	}
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if err := consume(rec); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close marks the store closed; further operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
