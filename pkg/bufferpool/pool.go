// Package bufferpool implements the process-wide buffer cache that backs
// segment pages: a registry of fixed-size []byte buffers, preloaded to a
// configurable core count and capped at a configurable max idle count,
// partitioned by size and refcounted across registrants.
package bufferpool

import "sync"

type sizeClass struct {
	mu       sync.Mutex
	idle     [][]byte
	core     int
	max      int
	refcount int
}

// Pool is a process-scoped registry of per-size buffer pools. The zero
// value is not usable; use New.
type Pool struct {
	mu      sync.Mutex
	classes map[int]*sizeClass
}

// New returns an empty buffer cache. Tests and independent store instances
// should each get their own Pool rather than sharing a hidden singleton.
func New() *Pool {
	return &Pool{classes: make(map[int]*sizeClass)}
}

// AddPreLoad registers that buffers of size bytes should be kept with at
// least core idle instances eagerly allocated and at most max cached when
// idle. Repeated registrations for the same size are refcounted; the
// effective core/max are the maximum seen across all registrants.
func (p *Pool) AddPreLoad(size, core, max int) {
	p.mu.Lock()
	sc, ok := p.classes[size]
	if !ok {
		sc = &sizeClass{}
		p.classes[size] = sc
	}
	p.mu.Unlock()

	sc.mu.Lock()
	sc.refcount++
	if core > sc.core {
		sc.core = core
	}
	if max > sc.max {
		sc.max = max
	}
	for len(sc.idle) < sc.core {
		sc.idle = append(sc.idle, make([]byte, size))
	}
	sc.mu.Unlock()
}

// RemovePreLoad decrements the registration for size. When the refcount
// reaches zero the class's idle buffers are released and, if nothing else
// is registered for size, the class itself is dropped.
func (p *Pool) RemovePreLoad(size int) {
	p.mu.Lock()
	sc, ok := p.classes[size]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	sc.mu.Lock()
	if sc.refcount > 0 {
		sc.refcount--
	}
	empty := sc.refcount == 0
	if empty {
		sc.idle = nil
		sc.core = 0
		sc.max = 0
	}
	sc.mu.Unlock()

	if empty {
		p.mu.Lock()
		if sc.refcount == 0 {
			delete(p.classes, size)
		}
		p.mu.Unlock()
	}
}

// Borrow returns an idle buffer of the given size if one is available,
// otherwise allocates a fresh, zeroed one. Borrow never returns nil.
func (p *Pool) Borrow(size int) []byte {
	sc := p.classOf(size)
	sc.mu.Lock()
	n := len(sc.idle)
	if n > 0 {
		buf := sc.idle[n-1]
		sc.idle = sc.idle[:n-1]
		sc.mu.Unlock()
		for i := range buf {
			buf[i] = 0
		}
		return buf
	}
	sc.mu.Unlock()
	return make([]byte, size)
}

// Release returns buf, sized size, to the cache. If the idle count for
// size has reached its registered max, buf is dropped instead of
// retained. Release never fails.
func (p *Pool) Release(size int, buf []byte) {
	sc := p.classOf(size)
	sc.mu.Lock()
	if len(sc.idle) < sc.max {
		sc.idle = append(sc.idle, buf)
	}
	sc.mu.Unlock()
}

// classOf returns the size class for size, creating an unregistered
// (core=0, max=0) one on first use so Borrow/Release work even without a
// prior AddPreLoad — buffers simply won't be retained on Release.
func (p *Pool) classOf(size int) *sizeClass {
	p.mu.Lock()
	defer p.mu.Unlock()
	sc, ok := p.classes[size]
	if !ok {
		sc = &sizeClass{}
		p.classes[size] = sc
	}
	return sc
}

// IdleCount reports the number of currently idle buffers for size, for
// tests and diagnostics.
func (p *Pool) IdleCount(size int) int {
	sc := p.classOf(size)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.idle)
}
