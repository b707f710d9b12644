package patterns

import "sync"

// Subject is an observable event source. Observers are plain functions;
// Subscribe returns the token used to unsubscribe.
type Subject[T any] struct {
	mu        sync.RWMutex
	nextToken int
	observers map[int]func(T)
}

// NewSubject creates a Subject with no observers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{observers: make(map[int]func(T))}
}

// Subscribe registers an observer and returns its token.
func (s *Subject[T]) Subscribe(observer func(T)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	s.observers[s.nextToken] = observer
	return s.nextToken
}

// Unsubscribe removes the observer registered under token; unknown tokens
// are a no-op.
func (s *Subject[T]) Unsubscribe(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, token)
}

// Notify delivers event to every observer synchronously.
func (s *Subject[T]) Notify(event T) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, observer := range s.observers {
		observer(event)
	}
}
