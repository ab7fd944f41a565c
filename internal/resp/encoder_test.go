package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/v3/assert"
)

func TestRoundTrip(t *testing.T) {
	values := []*Value{
		NewSimpleString("OK"),
		NewError("ERR boom"),
		NewInt(-42),
		NewBulkStringFrom("hello"),
		NewBulkString([]byte{0, 1, 2, 0xff}),
		NewNullBulk(),
		NewNullArray(),
		NewArray(NewBulkStringFrom("a"), NewInt(1), NewNullBulk()),
		NewArray(),
	}

	for _, want := range values {
		encoded, err := Marshal(want)
		assert.NilError(t, err)

		got, err := NewParser(bufio.NewReader(bytes.NewReader(encoded)), 0).Read()
		assert.NilError(t, err)

		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s\nwant=%s\ngot=%s", diff, spew.Sdump(want), spew.Sdump(got))
		}
	}
}

func TestEncodeCommand(t *testing.T) {
	cmd := NewCommand("SET", "x", "y")
	encoded, err := Marshal(cmd)
	assert.NilError(t, err)
	assert.Equal(t, string(encoded), "*3\r\n$3\r\nSET\r\n$1\r\nx\r\n$1\r\ny\r\n")
}
