// Package keylock provides mutual exclusion scoped to a key, used to
// serialize read-decide-write sequences on a single item without blocking
// unrelated items.
package keylock

import "sync"

// KeyLock hands out one mutex per key. Mutexes are never evicted; the key
// space here is item ids, which is small enough not to matter.
type KeyLock struct {
	locks sync.Map
}

func New() *KeyLock {
	return &KeyLock{}
}

// Lock acquires the mutex for key, creating it on first use.
func (l *KeyLock) Lock(key int64) {
	l.get(key).Lock()
}

// Unlock releases the mutex for key.
func (l *KeyLock) Unlock(key int64) {
	l.get(key).Unlock()
}

func (l *KeyLock) get(key int64) *sync.Mutex {
	if v, ok := l.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	v, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}
