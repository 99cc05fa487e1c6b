package locking

import "sync"

// Keyed hands out one mutex per key so that multi-step flows against the
// same table serialize while flows on different tables interleave freely.
// Mutexes are never evicted; the key space (physical tables) is small and
// fixed.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Do runs fn while holding the mutex for key.
func (k *Keyed) Do(key string, fn func() error) error {
	m := k.get(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}
