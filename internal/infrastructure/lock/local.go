// Package lock serializes dispatch per realm, either within one process or
// across replicas through Redis.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker is a keyed mutex. Waiting honours context cancellation and
// idle keys are dropped so the map does not grow with the realm count.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	sem     chan struct{}
	waiters int
}

// NewLocalLocker creates an empty keyed mutex
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[uuid.UUID]*slot)}
}

// Lock blocks until the realm is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, realmID uuid.UUID) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[realmID]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[realmID] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		l.leave(realmID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			l.leave(realmID, s)
		})
	}, nil
}

func (l *LocalLocker) leave(realmID uuid.UUID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, realmID)
	}
}
