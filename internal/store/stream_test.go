package store

import (
	"testing"

	"github.com/matryer/is"

	"github.com/awinterman/respd/internal/clock"
)

func lit(ms, seq uint64) StreamIDRequest {
	id := StreamID{Ms: ms, Seq: seq}
	return StreamIDRequest{Literal: &id}
}

func autoSeq(ms uint64) StreamIDRequest {
	return StreamIDRequest{AutoSeqMs: &ms}
}

func TestXAddLiteralAndRegression(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	id, err := s.XAdd("stream", lit(1, 1), []Field{{Name: "k", Value: []byte("v")}})
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 1, Seq: 1})

	_, err = s.XAdd("stream", lit(1, 1), nil)
	is.Equal(err, ErrXAddRegression)

	_, err = s.XAdd("stream", lit(1, 0), nil)
	is.Equal(err, ErrXAddRegression)

	id2, err := s.XAdd("stream", lit(2, 0), nil)
	is.NoErr(err)
	is.Equal(id2, StreamID{Ms: 2, Seq: 0})
}

func TestXAddZeroZeroRejected(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))
	_, err := s.XAdd("stream", lit(0, 0), nil)
	is.Equal(err, ErrXAddRegression)
}

func TestXAddAutoSeq(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	id, err := s.XAdd("stream", autoSeq(5), nil)
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 5, Seq: 0})

	id, err = s.XAdd("stream", autoSeq(5), nil)
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 5, Seq: 1})

	id, err = s.XAdd("stream", autoSeq(6), nil)
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 6, Seq: 0})
}

func TestXAddAutoWallClock(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	id, err := s.XAdd("stream", StreamIDRequest{Auto: true, NowMs: 100}, nil)
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 100, Seq: 0})

	id, err = s.XAdd("stream", StreamIDRequest{Auto: true, NowMs: 100}, nil)
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 100, Seq: 1})
}

func TestXAddWrongType(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))
	s.Set("k", []byte("v"), SetOptions{})
	_, err := s.XAdd("k", lit(1, 0), nil)
	is.Equal(err, ErrWrongType)
}

func TestXRangeInclusiveAndOpenBounds(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	s.XAdd("stream", lit(1, 0), []Field{{Name: "a", Value: []byte("1")}})
	s.XAdd("stream", lit(2, 0), []Field{{Name: "a", Value: []byte("2")}})
	s.XAdd("stream", lit(3, 0), []Field{{Name: "a", Value: []byte("3")}})

	entries, err := s.XRange("stream",
		RangeBound{ID: StreamID{Ms: 1, Seq: 0}},
		RangeBound{ID: StreamID{Ms: 2, Seq: 0}})
	is.NoErr(err)
	is.Equal(len(entries), 2)
	is.Equal(entries[0].ID, StreamID{Ms: 1, Seq: 0})
	is.Equal(entries[1].ID, StreamID{Ms: 2, Seq: 0})

	entries, err = s.XRange("stream", RangeBound{Min: true}, RangeBound{Max: true})
	is.NoErr(err)
	is.Equal(len(entries), 3)
}

func TestXAfter(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	s.XAdd("stream", lit(1, 0), nil)
	s.XAdd("stream", lit(2, 0), nil)

	entries, last, err := s.XAfter("stream", StreamID{Ms: 1, Seq: 0})
	is.NoErr(err)
	is.Equal(len(entries), 1)
	is.Equal(entries[0].ID, StreamID{Ms: 2, Seq: 0})
	is.Equal(last, StreamID{Ms: 2, Seq: 0})
}

func TestXInfoStream(t *testing.T) {
	is := is.New(t)
	s := New(clock.NewManual(0))

	_, ok, err := s.XInfoStream("missing")
	is.NoErr(err)
	is.True(!ok)

	s.XAdd("stream", lit(1, 0), []Field{{Name: "a", Value: []byte("1")}})
	s.XAdd("stream", lit(2, 0), []Field{{Name: "b", Value: []byte("2")}})

	info, ok, err := s.XInfoStream("stream")
	is.NoErr(err)
	is.True(ok)
	is.Equal(info.Length, int64(2))
	is.Equal(info.LastID, StreamID{Ms: 2, Seq: 0})
	is.Equal(info.FirstEntry.ID, StreamID{Ms: 1, Seq: 0})
	is.Equal(info.LastEntry.ID, StreamID{Ms: 2, Seq: 0})
}

func TestParseStreamID(t *testing.T) {
	is := is.New(t)

	id, err := ParseStreamID("5-3")
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 5, Seq: 3})

	id, err = ParseStreamID("5")
	is.NoErr(err)
	is.Equal(id, StreamID{Ms: 5, Seq: 0})

	_, err = ParseStreamID("nope")
	is.True(err != nil)
}
