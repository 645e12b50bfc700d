package checkin

import (
	"context"
	"sync"
)

// shiftLocks is a keyed mutex. Each shift id gets its own lock and entries are
// dropped once nobody holds or waits for them, so the map only grows with the
// number of shifts in flight.
type shiftLocks struct {
	mu    sync.Mutex
	locks map[string]*shiftLock
}

type shiftLock struct {
	sem  chan struct{}
	refs int
}

func newShiftLocks() *shiftLocks {
	return &shiftLocks{locks: make(map[string]*shiftLock)}
}

// lock blocks until the lock for shiftID is held or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (s *shiftLocks) lock(ctx context.Context, shiftID string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[shiftID]
	if !ok {
		l = &shiftLock{sem: make(chan struct{}, 1)}
		s.locks[shiftID] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			s.release(shiftID, l)
		}, nil
	case <-ctx.Done():
		s.release(shiftID, l)
		return nil, ctx.Err()
	}
}

func (s *shiftLocks) release(shiftID string, l *shiftLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, shiftID)
	}
}

// size returns the number of shifts with holders or waiters
func (s *shiftLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
