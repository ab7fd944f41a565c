// Copyright 2024 Outreach Corporation. All Rights Reserved.

package resp

import (
	"bufio"
	"bytes"
	"fmt"
)

// Encoder writes Values to a buffered writer using a type-driven dispatch
// table, mirroring the parser's shape.
type Encoder struct {
	dispatch map[Kind]func(*bufio.Writer, *Value) error
}

// NewEncoder builds an Encoder ready for use.
func NewEncoder() *Encoder {
	e := &Encoder{}
	e.dispatch = map[Kind]func(*bufio.Writer, *Value) error{
		SimpleString: e.writeSimple,
		Error:        e.writeSimple,
		Int:          e.writeInt,
		BulkString:   e.writeBulk,
		Array:        e.writeArray,
	}
	return e
}

// Write encodes v to w. It does not flush; callers control batching.
func (e *Encoder) Write(w *bufio.Writer, v *Value) error {
	f, ok := e.dispatch[v.Kind]
	if !ok {
		return fmt.Errorf("resp: unknown kind %q", v.Kind)
	}
	return f(w, v)
}

func (e *Encoder) writeSimple(w *bufio.Writer, v *Value) error {
	if _, err := fmt.Fprintf(w, "%c%s%s", byte(v.Kind), v.Bytes, EOL); err != nil {
		return err
	}
	return nil
}

func (e *Encoder) writeInt(w *bufio.Writer, v *Value) error {
	_, err := fmt.Fprintf(w, "%c%d%s", byte(v.Kind), v.Int, EOL)
	return err
}

func (e *Encoder) writeBulk(w *bufio.Writer, v *Value) error {
	if v.Null {
		_, err := fmt.Fprintf(w, "$-1%s", EOL)
		return err
	}
	if _, err := fmt.Fprintf(w, "$%d%s", len(v.Bytes), EOL); err != nil {
		return err
	}
	if _, err := w.Write(v.Bytes); err != nil {
		return err
	}
	_, err := w.WriteString(EOL)
	return err
}

func (e *Encoder) writeArray(w *bufio.Writer, v *Value) error {
	if v.Null {
		_, err := fmt.Fprintf(w, "*-1%s", EOL)
		return err
	}
	if _, err := fmt.Fprintf(w, "*%d%s", len(v.Array), EOL); err != nil {
		return err
	}
	for _, elem := range v.Array {
		if err := e.Write(w, elem); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes v into a freshly-allocated byte slice. Used when a caller
// needs the exact wire bytes ahead of write, such as replica propagation's
// byte-length accounting.
func Marshal(v *Value) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := NewEncoder().Write(w, v); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
