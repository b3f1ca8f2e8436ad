package conversation

import (
	"errors"
	"sync"
)

// ErrDuplicateID is returned when appending a Turn whose ID already exists.
// Hitting it indicates a bug in the caller, not a recoverable condition.
var ErrDuplicateID = errors.New("duplicate turn id")

// ErrNotFound is returned when no Turn exists for the requested ID.
var ErrNotFound = errors.New("turn not found")

const subscriberBuffer = 16

// Store owns the append-only ordered sequence of Turns for one session.
// It is seeded with an initial Turn at construction, so it is never empty.
// All methods are safe for concurrent use: unlike the single event loop the
// design originated from, an HTTP server mutates the store from multiple
// request goroutines.
type Store struct {
	mu      sync.RWMutex
	turns   []Turn
	index   map[string]int
	subs    map[int]chan Turn
	nextSub int
}

// NewStore creates a Store containing only the given seed Turn.
func NewStore(seed Turn) *Store {
	s := &Store{
		index: make(map[string]int),
		subs:  make(map[int]chan Turn),
	}
	s.turns = append(s.turns, seed)
	s.index[seed.ID] = 0
	return s
}

// Append adds a Turn to the end of the sequence and notifies subscribers.
// The Turn's ID must be unique among existing Turns.
func (s *Store) Append(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[t.ID]; exists {
		return ErrDuplicateID
	}
	s.index[t.ID] = len(s.turns)
	s.turns = append(s.turns, t)

	// Notify while still holding the lock: the sends never block, and a
	// cancel cannot close a channel between the map read and the send.
	for _, ch := range s.subs {
		// Drop the event rather than block on a slow subscriber.
		select {
		case ch <- t:
		default:
		}
	}
	return nil
}

// All returns the full sequence in insertion (chronological) order.
// The returned slice is a copy; callers may not mutate stored Turns.
func (s *Store) All() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// FindByID returns the Turn with the given ID, or ErrNotFound.
func (s *Store) FindByID(id string) (Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Turn{}, ErrNotFound
	}
	return s.turns[i], nil
}

// Len reports the number of Turns in the sequence.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Subscribe registers an observer that receives every subsequently appended
// Turn. The returned cancel function must be called to release the
// subscription.
func (s *Store) Subscribe() (<-chan Turn, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Turn, subscriberBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
