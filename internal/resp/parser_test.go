package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"testing"

	"gotest.tools/v3/assert"
)

func TestRead_SimpleString(t *testing.T) {
	b := bytes.NewBufferString("+OK\r\n")
	v, err := NewParser(bufio.NewReader(b), 0).Read()

	assert.NilError(t, err)
	assert.Equal(t, string(v.Bytes), "OK")
	assert.Equal(t, v.Kind, SimpleString)
}

func TestRead_Error(t *testing.T) {
	b := bytes.NewBufferString("-ERR boom\r\n")
	v, err := NewParser(bufio.NewReader(b), 0).Read()

	assert.NilError(t, err)
	assert.Equal(t, string(v.Bytes), "ERR boom")
	assert.Equal(t, v.Kind, Error)
}

func TestRead_Int(t *testing.T) {
	t.Run("an int", func(t *testing.T) {
		b := bytes.NewBufferString(":1024\r\n")
		v, err := NewParser(bufio.NewReader(b), 0).Read()

		assert.NilError(t, err)
		assert.Equal(t, v.Int, int64(1024))
	})

	t.Run("not an int", func(t *testing.T) {
		b := bytes.NewBufferString(":hi\r\n")
		_, err := NewParser(bufio.NewReader(b), 0).Read()

		assert.ErrorIs(t, err, ErrProtocol)
	})
}

func TestRead_BulkString(t *testing.T) {
	t.Run("simple case", func(t *testing.T) {
		bulkStringTest(t, "hello world, this is a bulk string")
	})

	t.Run("binary safe", func(t *testing.T) {
		data := "\x00\x01\xff\r\n binary"
		b := bytes.NewBufferString("$" + strconv.Itoa(len(data)) + "\r\n" + data + "\r\n")
		v, err := NewParser(bufio.NewReader(b), 0).Read()

		assert.NilError(t, err)
		assert.DeepEqual(t, v.Bytes, []byte(data))
	})

	t.Run("null bulk", func(t *testing.T) {
		b := bytes.NewBufferString("$-1\r\n")
		v, err := NewParser(bufio.NewReader(b), 0).Read()

		assert.NilError(t, err)
		assert.Equal(t, v.Null, true)
	})

	t.Run("exceeds max bulk len", func(t *testing.T) {
		b := bytes.NewBufferString("$100\r\n")
		_, err := NewParser(bufio.NewReader(b), 10).Read()

		assert.ErrorIs(t, err, ErrProtocol)
	})
}

func bulkStringTest(t *testing.T, data string) {
	b := bytes.NewBufferString("$" + strconv.Itoa(len(data)) + "\r\n" + data + "\r\n")
	v, err := NewParser(bufio.NewReader(b), 0).Read()

	assert.NilError(t, err)
	assert.Equal(t, string(v.Bytes), data)
}

func TestRead_Array(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected []string
	}{
		"empty array": {
			input:    "*0\r\n",
			expected: nil,
		},
		"bulk strings": {
			input:    "*2\r\n$5\r\nhello\r\n$5\r\nworld\r\n",
			expected: []string{"hello", "world"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := NewParser(bufio.NewReader(bytes.NewBufferString(tc.input)), 0).Read()

			assert.NilError(t, err)
			assert.Equal(t, v.Kind, Array)
			assert.Equal(t, len(v.Array), len(tc.expected))
			for i, want := range tc.expected {
				assert.Equal(t, string(v.Array[i].Bytes), want)
			}
		})
	}
}

func TestRead_NullArray(t *testing.T) {
	v, err := NewParser(bufio.NewReader(bytes.NewBufferString("*-1\r\n")), 0).Read()

	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Array)
	assert.Equal(t, v.Null, true)
}

// TestIncrementality feeds a complete frame in two pieces at every possible
// split point and checks exactly one frame comes out with no leftover
// bytes, per the parser incrementality property.
func TestIncrementality(t *testing.T) {
	frame := "*3\r\n$3\r\nSET\r\n$1\r\nx\r\n$1\r\ny\r\n"

	for i := 0; i <= len(frame); i++ {
		pr, pw := io.Pipe()
		go func(first, second string) {
			_, _ = io.WriteString(pw, first)
			_, _ = io.WriteString(pw, second)
			pw.Close()
		}(frame[:i], frame[i:])

		v, err := NewParser(bufio.NewReader(pr), 0).Read()
		assert.NilError(t, err)
		assert.Equal(t, v.Kind, Array)
		assert.Equal(t, len(v.Array), 3)
	}
}
