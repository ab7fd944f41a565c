// Package waiter implements the blocking-command registry used by BLPOP and
// blocking XREAD: a per-key FIFO of connections waiting for a key to become
// non-empty or a stream to gain a new entry, woken one at a time as writes
// land.
//
// Grounded on anarchoredis/localstate/keylocker.go's AwaitUnlocked/Subscribe
// shape (register interest in a set of keys, wake on a matching write) —
// generalized from Badger's subscription feed to an in-process channel per
// waiter, since there is no external KV store backing this module's data.
package waiter

import (
	"log/slog"
	"sync"
	"time"
)

// Result is delivered to a woken (or timed-out) waiter.
type Result struct {
	// Key is the key whose write triggered the wake, empty on timeout.
	Key string
	// TimedOut is true if the waiter's deadline elapsed before any wake.
	TimedOut bool
}

// Waiter is one blocked command's registration. Callers must re-check their
// own predicate after a wake — Notify only says "something changed on this
// key", not "the condition you wanted now holds".
type Waiter struct {
	id     uint64
	keys   []string
	Done   chan Result
	fired  bool
}

// Registry tracks, per key, the FIFO of connections blocked on it.
type Registry struct {
	mu      sync.Mutex
	byKey   map[string][]*Waiter
	byID    map[uint64]*Waiter
	nextID  uint64
	log     *slog.Logger
	timers  map[uint64]*time.Timer
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		byKey:  make(map[string][]*Waiter),
		byID:   make(map[uint64]*Waiter),
		timers: make(map[uint64]*time.Timer),
		log:    slog.With("comp", "waiter"),
	}
}

// Register enqueues a new waiter on every key in keys, returning it. If
// timeout is non-zero, the waiter is automatically cancelled and sent a
// TimedOut Result after it elapses; timeout == 0 means wait forever.
func (r *Registry) Register(keys []string, timeout time.Duration) *Waiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	w := &Waiter{
		id:   r.nextID,
		keys: append([]string(nil), keys...),
		Done: make(chan Result, 1),
	}
	r.byID[w.id] = w
	for _, k := range keys {
		r.byKey[k] = append(r.byKey[k], w)
	}

	if timeout > 0 {
		r.timers[w.id] = time.AfterFunc(timeout, func() {
			r.timeout(w.id)
		})
	}

	return w
}

// Notify wakes the single oldest still-registered waiter on key, if any,
// and removes it from every key it was registered on. At most one waiter
// wakes per call, matching BLPOP's one-value-one-waiter fairness.
func (r *Registry) Notify(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.byKey[key]
	if len(queue) == 0 {
		return
	}

	w := queue[0]
	r.removeLocked(w)
	r.fireLocked(w, Result{Key: key})
}

// Cancel removes w from the registry without firing it. Used when a
// connection disconnects while blocked, or after a caller consumes the
// wake and no longer needs to be registered.
func (r *Registry) Cancel(w *Waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(w)
}

func (r *Registry) timeout(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.byID[id]
	if !ok {
		return
	}
	r.removeLocked(w)
	r.fireLocked(w, Result{TimedOut: true})
}

// removeLocked drops w from byID, every key queue it appears in, and stops
// its timeout timer. Callers must hold r.mu.
func (r *Registry) removeLocked(w *Waiter) {
	if _, ok := r.byID[w.id]; !ok {
		return
	}
	delete(r.byID, w.id)
	for _, k := range w.keys {
		queue := r.byKey[k]
		for i, other := range queue {
			if other.id == w.id {
				r.byKey[k] = append(queue[:i], queue[i+1:]...)
				break
			}
		}
		if len(r.byKey[k]) == 0 {
			delete(r.byKey, k)
		}
	}
	if t, ok := r.timers[w.id]; ok {
		t.Stop()
		delete(r.timers, w.id)
	}
}

func (r *Registry) fireLocked(w *Waiter, res Result) {
	if w.fired {
		return
	}
	w.fired = true
	w.Done <- res
}
