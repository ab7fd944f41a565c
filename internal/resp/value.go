// Copyright 2024 Outreach Corporation. All Rights Reserved.

package resp

import "fmt"

// Value is a parsed or to-be-encoded RESP frame. Kind says which fields are
// meaningful: Bytes for SimpleString/Error/BulkString, Int for Int, Array
// for Array. Null distinguishes an absent bulk string/array ($-1, *-1) from
// a present-but-empty one.
type Value struct {
	Kind  Kind
	Bytes []byte
	Int   int64
	Array []*Value
	Null  bool
}

// NewSimpleString builds a "+" simple string value.
func NewSimpleString(s string) *Value {
	return &Value{Kind: SimpleString, Bytes: []byte(s)}
}

// NewError builds a "-" error value from text. Callers must not include
// embedded CR/LF; route such text through NewBulkString instead.
func NewError(s string) *Value {
	return &Value{Kind: Error, Bytes: []byte(s)}
}

// NewInt builds a ":" integer value.
func NewInt(i int64) *Value {
	return &Value{Kind: Int, Int: i}
}

// NewBulkString builds a "$" bulk string value from arbitrary bytes.
func NewBulkString(b []byte) *Value {
	return &Value{Kind: BulkString, Bytes: b}
}

// NewBulkStringFrom is a convenience wrapper over NewBulkString for text.
func NewBulkStringFrom(s string) *Value {
	return NewBulkString([]byte(s))
}

// NewNullBulk builds the "$-1" null bulk string.
func NewNullBulk() *Value {
	return &Value{Kind: BulkString, Null: true}
}

// NewArray builds a "*" array value from the given elements.
func NewArray(values ...*Value) *Value {
	return &Value{Kind: Array, Array: values}
}

// NewNullArray builds the "*-1" null array, used as the BLPOP/XREAD timeout
// reply.
func NewNullArray() *Value {
	return &Value{Kind: Array, Null: true}
}

// NewCommand builds an outgoing command frame: an array of bulk strings,
// one per argument, in the exact shape replication propagation and the
// handshake driver send over the wire.
func NewCommand(args ...string) *Value {
	vs := make([]*Value, len(args))
	for i, a := range args {
		vs[i] = NewBulkStringFrom(a)
	}
	return NewArray(vs...)
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case SimpleString, Error:
		return fmt.Sprintf("%c%s", v.Kind, string(v.Bytes))
	case Int:
		return fmt.Sprintf("%c%d", v.Kind, v.Int)
	case BulkString:
		if v.Null {
			return "$-1"
		}
		return fmt.Sprintf("$%q", string(v.Bytes))
	case Array:
		if v.Null {
			return "*-1"
		}
		out := "*["
		for i, e := range v.Array {
			if i > 0 {
				out += " "
			}
			out += e.String()
		}
		return out + "]"
	default:
		return fmt.Sprintf("unknown(%c)", byte(v.Kind))
	}
}
