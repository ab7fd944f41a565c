package store

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamID is the (ms, seq) pair, totally ordered lexicographically with ms
// first.
type StreamID struct {
	Ms  uint64
	Seq uint64
}

// Less reports whether id sorts strictly before other.
func (id StreamID) Less(other StreamID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// String renders "{ms}-{seq}".
func (id StreamID) String() string {
	return fmt.Sprintf("%d-%d", id.Ms, id.Seq)
}

// Field is one (name, value) pair of a stream entry, in writer-supplied
// order.
type Field struct {
	Name  string
	Value []byte
}

// StreamEntry is one append-only log record.
type StreamEntry struct {
	ID     StreamID
	Fields []Field
}

// ErrXAddRegression is the bit-exact error text for an XADD id that does
// not exceed the stream's current last id.
var ErrXAddRegression = fmt.Errorf("ERR The ID specified in XADD is equal or smaller than the target stream top item")

// ParseStreamID parses a literal "ms-seq" id. Used for XADD's explicit-id
// form and for XRANGE boundary arguments (minus "-"/"+" sentinels, which
// callers handle separately).
func ParseStreamID(s string) (StreamID, error) {
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("ERR Invalid stream ID specified as stream command argument")
	}
	if len(parts) == 1 {
		return StreamID{Ms: ms}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("ERR Invalid stream ID specified as stream command argument")
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// XAdd appends an entry. id is resolved by the catalog layer (literal,
// "ms-*", or "*") into a candidate StreamID before this call, except that
// the "ms-*" and "*" forms need the stream's current last id to pick a
// seq — so XAdd itself resolves id given a resolver describing the
// caller's request.
func (s *Store) XAdd(key string, req StreamIDRequest, fields []Field) (StreamID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		e = &entry{kind: KindStream, stream: &streamEntry{}}
		s.data[key] = e
	} else if e.kind != KindStream {
		return StreamID{}, ErrWrongType
	}

	id, err := req.resolve(e.stream.lastID)
	if err != nil {
		return StreamID{}, err
	}
	if id == (StreamID{}) || !e.stream.lastID.Less(id) {
		if len(e.stream.entries) > 0 || id == (StreamID{}) {
			return StreamID{}, ErrXAddRegression
		}
	}

	e.stream.entries = append(e.stream.entries, StreamEntry{ID: id, Fields: fields})
	e.stream.lastID = id
	return id, nil
}

// StreamIDRequest describes how XAdd should pick the id for a new entry:
// a literal id, an "ms-*" auto-seq request, or "*" (current wall time).
type StreamIDRequest struct {
	Literal  *StreamID
	AutoSeqMs *uint64
	Auto     bool
	NowMs    uint64
}

func (r StreamIDRequest) resolve(lastID StreamID) (StreamID, error) {
	switch {
	case r.Literal != nil:
		return *r.Literal, nil
	case r.AutoSeqMs != nil:
		seq := uint64(0)
		if lastID.Ms == *r.AutoSeqMs {
			seq = lastID.Seq + 1
		}
		return StreamID{Ms: *r.AutoSeqMs, Seq: seq}, nil
	case r.Auto:
		if lastID.Ms == r.NowMs {
			return StreamID{Ms: r.NowMs, Seq: lastID.Seq + 1}, nil
		}
		return StreamID{Ms: r.NowMs, Seq: 0}, nil
	default:
		return StreamID{}, fmt.Errorf("ERR invalid stream id request")
	}
}

// RangeBound is an inclusive XRANGE/XREAD endpoint: either an explicit id
// or an open bound (Min/Max).
type RangeBound struct {
	ID  StreamID
	Min bool
	Max bool
}

// XRange returns entries with id in [start, end], both inclusive.
func (s *Store) XRange(key string, start, end RangeBound) ([]StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != KindStream {
		return nil, ErrWrongType
	}

	var out []StreamEntry
	for _, se := range e.stream.entries {
		if !start.Max && !start.Min && se.ID.Less(start.ID) {
			continue
		}
		if !end.Min && !end.Max && end.ID.Less(se.ID) {
			continue
		}
		out = append(out, se)
	}
	return out, nil
}

// XAfter returns the stream's entries strictly greater than after, plus the
// stream's current last id (used both for a direct XREAD call and for
// re-evaluating a blocked XREAD against its original baseline).
func (s *Store) XAfter(key string, after StreamID) (entries []StreamEntry, lastID StreamID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, StreamID{}, nil
	}
	if e.kind != KindStream {
		return nil, StreamID{}, ErrWrongType
	}

	for _, se := range e.stream.entries {
		if after.Less(se.ID) {
			entries = append(entries, se)
		}
	}
	return entries, e.stream.lastID, nil
}

// LastID returns the stream's current last id, used to resolve XREAD's "$"
// baseline at registration time.
func (s *Store) LastID(key string) (StreamID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return StreamID{}, nil
	}
	if e.kind != KindStream {
		return StreamID{}, ErrWrongType
	}
	return e.stream.lastID, nil
}

// StreamInfo is the essential metadata XINFO STREAM reports.
type StreamInfo struct {
	Length       int64
	LastID       StreamID
	FirstEntry   *StreamEntry
	LastEntry    *StreamEntry
}

// XInfoStream reports length, last-generated-id, first-entry, last-entry.
func (s *Store) XInfoStream(key string) (*StreamInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != KindStream {
		return nil, false, ErrWrongType
	}

	info := &StreamInfo{Length: int64(len(e.stream.entries)), LastID: e.stream.lastID}
	if len(e.stream.entries) > 0 {
		first := e.stream.entries[0]
		last := e.stream.entries[len(e.stream.entries)-1]
		info.FirstEntry = &first
		info.LastEntry = &last
	}
	return info, true, nil
}
