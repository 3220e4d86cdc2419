package locks

import "sync"

// PerKey hands out one mutex per key so operations on the same cause
// serialize while unrelated causes never contend. Mutexes are never evicted;
// the key space (causes) is small and long-lived.
type PerKey struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func NewPerKey() *PerKey {
	return &PerKey{m: make(map[string]*sync.Mutex)}
}

func (p *PerKey) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.m[key]
	if !ok {
		l = &sync.Mutex{}
		p.m[key] = l
	}
	return l
}

// Lock locks the mutex for key and returns the unlock function.
func (p *PerKey) Lock(key string) func() {
	l := p.get(key)
	l.Lock()
	return l.Unlock
}
