package storage

import (
	"sync"

	"github.com/google/uuid"
)

// idLocks serializes writers of the same document id.
//
// Entries are reference counted and dropped once the last holder unlocks, so
// the map only holds ids with in-flight writes.
type idLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*idLock
}

type idLock struct {
	sync.Mutex
	refs int
}

// lock acquires the lock for id and returns the function releasing it.
func (l *idLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*idLock)
	}
	m := l.locks[id]
	if m == nil {
		m = &idLock{}
		l.locks[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
