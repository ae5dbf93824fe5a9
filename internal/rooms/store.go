package rooms

import (
	"sync"
	"time"

	"github.com/TuneSync/tune-sync-backend/internal/logger"
)

const (
	// ReapInterval is how often the idle sweep runs.
	ReapInterval = time.Minute

	// IdleTimeout is how long a room may sit empty before it is evicted.
	IdleTimeout = 5 * time.Minute
)

// Store is the registry of every live room, keyed by room code. State is
// in-memory only: the registry starts empty and nothing survives the
// process.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// GetOrCreate returns the room for the code, creating it lazily on first
// use.
func (s *Store) GetOrCreate(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[code]; ok {
		return r
	}

	r := newRoom(code)
	s.rooms[code] = r
	logger.Log.Info("room created", "room", code)
	return r
}

func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	return r, ok
}

// Delete drops the room and cancels any advance it still had scheduled.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	r, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()

	if ok {
		r.cancelPending()
	}
}

// Snapshot returns the current room list as a copied slice, safe to
// iterate while rooms are created or deleted concurrently. Disconnect
// handling scans this list to find the departing connection's room, an
// accepted O(rooms) cost at this scale.
func (s *Store) Snapshot() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// StartReaper sweeps for idle rooms every ReapInterval until done is
// closed. A single goroutine runs the loop, so sweeps never overlap.
func (s *Store) StartReaper(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.reap()
			case <-done:
				return
			}
		}
	}()
}

func (s *Store) reap() {
	now := s.now()

	for _, r := range s.Snapshot() {
		since, ok := r.idleSince()
		if !ok || now.Sub(since) <= IdleTimeout {
			continue
		}

		s.Delete(r.Code())
		logger.Log.Info("room reaped", "room", r.Code(), "emptyFor", now.Sub(since).String())
	}
}
