package store

import (
	"testing"

	"github.com/matryer/is"

	"github.com/awinterman/respd/internal/clock"
)

func TestTypeExistsDel(t *testing.T) {
	is := is.New(t)
	c := clock.NewManual(0)
	s := New(c)

	is.Equal(s.Type("missing"), "none")

	s.Set("k", []byte("v"), SetOptions{})
	is.Equal(s.Type("k"), "string")

	_, err := s.Push("l", true, []byte("a"))
	is.NoErr(err)
	is.Equal(s.Type("l"), "list")

	is.Equal(s.Exists("k", "l", "missing"), int64(2))
	is.Equal(s.Del("k", "missing"), int64(1))
	is.Equal(s.Type("k"), "none")
	is.Equal(s.Type("l"), "list")
}

func TestWrongType(t *testing.T) {
	is := is.New(t)
	c := clock.NewManual(0)
	s := New(c)

	s.Set("k", []byte("v"), SetOptions{})

	_, err := s.Push("k", true, []byte("x"))
	is.Equal(err, ErrWrongType)

	_, _, err = s.Get("k")
	is.NoErr(err)

	s.Push("l", true, []byte("x"))
	_, _, err = s.Get("l")
	is.Equal(err, ErrWrongType)
}

func TestStringTTLExpiry(t *testing.T) {
	is := is.New(t)
	c := clock.NewManual(1000)
	s := New(c)

	s.Set("k", []byte("v"), SetOptions{ExpiresAtMillis: 1500})

	v, ok, err := s.Get("k")
	is.NoErr(err)
	is.True(ok)
	is.Equal(string(v), "v")

	c.Advance(600)
	_, ok, err = s.Get("k")
	is.NoErr(err)
	is.True(!ok)
	is.Equal(s.Type("k"), "none")
}

func TestIncr(t *testing.T) {
	is := is.New(t)
	c := clock.NewManual(0)
	s := New(c)

	n, err := s.Incr("counter")
	is.NoErr(err)
	is.Equal(n, int64(1))

	n, err = s.Incr("counter")
	is.NoErr(err)
	is.Equal(n, int64(2))

	s.Set("str", []byte("notanumber"), SetOptions{})
	_, err = s.Incr("str")
	is.Equal(err, ErrNotInteger)

	s.Push("list", true, []byte("x"))
	_, err = s.Incr("list")
	is.Equal(err, ErrWrongType)
}

func TestIncrPreservesTTL(t *testing.T) {
	is := is.New(t)
	c := clock.NewManual(0)
	s := New(c)

	s.Set("k", []byte("1"), SetOptions{ExpiresAtMillis: 500})
	_, err := s.Incr("k")
	is.NoErr(err)

	c.Advance(600)
	_, ok, _ := s.Get("k")
	is.True(!ok)
}
