package store

import (
	"fmt"
	"strconv"
)

// ErrNotInteger mirrors the wire-level "value is not an integer or out of
// range" error.
var ErrNotInteger = fmt.Errorf("ERR value is not an integer or out of range")

// Get reads a string key, applying lazy TTL expiry. ok is false for an
// absent or expired key.
func (s *Store) Get(key string) (value []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != KindString {
		return nil, false, ErrWrongType
	}
	return e.str.bytes, true, nil
}

// SetOptions carries SET's optional TTL. Absent a TTL, any prior expiry is
// cleared.
type SetOptions struct {
	ExpiresAtMillis int64 // 0 means no TTL
}

// Set unconditionally stores value at key, clearing any prior TTL unless
// opts supplies a new one.
func (s *Store) Set(key string, value []byte, opts SetOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{kind: KindString, str: &stringEntry{bytes: value, expiresAt: opts.ExpiresAtMillis}}
}

// Incr parses the current value as a signed decimal (treating an absent
// key as 0), writes back the incremented text, and returns the new value.
func (s *Store) Incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	var cur int64
	var expiresAt int64
	if e != nil {
		if e.kind != KindString {
			return 0, ErrWrongType
		}
		v, err := strconv.ParseInt(string(e.str.bytes), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		cur = v
		expiresAt = e.str.expiresAt
	}

	next := cur + 1
	s.data[key] = &entry{kind: KindString, str: &stringEntry{bytes: []byte(strconv.FormatInt(next, 10)), expiresAt: expiresAt}}
	return next, nil
}
