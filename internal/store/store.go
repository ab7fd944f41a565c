// Copyright 2024 Outreach Corporation. All Rights Reserved.

// Package store implements the typed in-memory key namespace: strings with
// lazy TTL expiry, lists, and append-only streams with monotonic ids.
//
// Grounded on anarchoredis/localstate/keystore.go's Store{DB, Log} shape —
// here DB is a plain Go map instead of a Badger handle, because the typed
// multi-kind values (list, stream) and the WRONGTYPE invariant don't map
// onto a byte-oriented KV store without per-op re-serialization; see
// DESIGN.md for the dependency drop this implies.
package store

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/awinterman/respd/internal/clock"
)

// Kind tags which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// ErrWrongType is returned when an operation that assumes one variant is
// applied to a key bound to another. Checking it must be O(1) and must
// never mutate the store.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// stringEntry is the String{bytes, expires_at?} variant.
type stringEntry struct {
	bytes     []byte
	expiresAt int64 // monotonic ms; 0 means no TTL
}

// listEntry is the List{items} variant. Never empty while it exists — the
// last Lpop/Rpop of the last element deletes the key.
type listEntry struct {
	items [][]byte
}

// streamEntry is the Stream{entries, last_id} variant.
type streamEntry struct {
	entries []StreamEntry
	lastID  StreamID
}

// entry is the tagged union backing one key. Exactly one of the three
// pointers is non-nil, selected by kind.
type entry struct {
	kind   Kind
	str    *stringEntry
	list   *listEntry
	stream *streamEntry
}

// Store is the process-wide typed key namespace. Every operation holds a
// single mutex for its duration, standing in for the "no interleaving
// yield" invariant of the cooperative scheduling model: a command never
// observes another command's partial mutation.
type Store struct {
	mu    sync.Mutex
	data  map[string]*entry
	clock clock.Clock
	log   *slog.Logger
}

// New builds an empty Store using the given clock for TTL and stream-id
// timestamps.
func New(c clock.Clock) *Store {
	return &Store{
		data:  make(map[string]*entry),
		clock: c,
		log:   slog.With("comp", "store"),
	}
}

// lookup returns the live entry for key, treating an expired string as
// absent and deleting it lazily. Must be called with mu held.
func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if e.kind == KindString && e.str.expiresAt != 0 && s.clock.NowMillis() >= e.str.expiresAt {
		delete(s.data, key)
		return nil
	}
	return e
}

// Type returns "string" | "list" | "stream" | "none".
func (s *Store) Type(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		return "none"
	}
	return e.kind.String()
}

// Del removes the named keys, returning how many existed.
func (s *Store) Del(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if s.lookup(k) != nil {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// Exists counts how many of the given keys are present.
func (s *Store) Exists(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if s.lookup(k) != nil {
			n++
		}
	}
	return n
}

// Keys returns every live key, for diagnostics. Not part of the wire
// protocol surface.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if s.lookup(k) != nil {
			out = append(out, k)
		}
	}
	return out
}
