// Package uniqueness enforces "at most one live resource per
// (type, name, scope key)". The check-then-reserve step is the critical
// section of the whole core: it holds a per-shard mutex so that two
// concurrent creates of the same key can never both observe "no conflict".
package uniqueness

import (
	"hash/fnv"
	"sync"

	"itl-resource-backend/internal/domain/ports"
)

const shardCount = 32

type shard struct {
	mu   sync.Mutex
	keys map[string]reservation
}

type reservation struct {
	resourceType string
	name         string
	scope        string
}

// Index is a sharded reservation set over composite uniqueness keys.
// Unrelated keys land on different shards and do not contend.
type Index struct {
	shards [shardCount]*shard
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	idx := &Index{}
	for i := range idx.shards {
		idx.shards[i] = &shard{keys: make(map[string]reservation)}
	}
	return idx
}

func (i *Index) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return i.shards[h.Sum32()%shardCount]
}

// CheckAndReserve atomically reserves key. If a live reservation already
// exists it returns a ConflictError describing the holder's scope, and the
// index is unchanged.
func (i *Index) CheckAndReserve(key, resourceType, name, scope string) error {
	s := i.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.keys[key]; ok {
		return &ports.ConflictError{
			Key:   key,
			Type:  held.resourceType,
			Name:  held.name,
			Scope: held.scope,
		}
	}
	s.keys[key] = reservation{resourceType: resourceType, name: name, scope: scope}
	return nil
}

// Release frees key for reuse within its scope. Releasing an absent key is
// a no-op, not an error.
func (i *Index) Release(key string) {
	s := i.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

// Reserved reports whether key currently holds a reservation.
func (i *Index) Reserved(key string) bool {
	s := i.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the total number of reservations.
func (i *Index) Len() int {
	n := 0
	for _, s := range i.shards {
		s.mu.Lock()
		n += len(s.keys)
		s.mu.Unlock()
	}
	return n
}
