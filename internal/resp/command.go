// Copyright 2024 Outreach Corporation. All Rights Reserved.

package resp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand is returned when a frame cannot be interpreted as a
// command: not an array, or containing a non-bulk-string element.
var ErrInvalidCommand = errors.New("ERR invalid command")

// Command is a parsed client request: an upper-cased verb plus its
// argument bytes, still attached to the frame it came from so a caller can
// re-encode the exact frame for replication propagation.
type Command struct {
	Name  string
	Args  [][]byte
	Frame *Value
}

// Cmd interprets v as a command frame: an array of bulk strings whose first
// element is the command name.
func (v *Value) Cmd() (*Command, error) {
	if v.Kind != Array || v.Null {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalidCommand, v.Kind)
	}
	if len(v.Array) == 0 {
		return nil, fmt.Errorf("%w: empty command array", ErrInvalidCommand)
	}
	for i, elem := range v.Array {
		if elem.Kind != BulkString || elem.Null {
			return nil, fmt.Errorf("%w: element %d is not a bulk string", ErrInvalidCommand, i)
		}
	}

	name := strings.ToUpper(string(v.Array[0].Bytes))
	if name == "" {
		return nil, fmt.Errorf("%w: empty command name", ErrInvalidCommand)
	}

	args := make([][]byte, len(v.Array)-1)
	for i, elem := range v.Array[1:] {
		args[i] = elem.Bytes
	}

	return &Command{Name: name, Args: args, Frame: v}, nil
}

// StringArgs materializes the command's arguments as strings, for catalog
// executors that only need text (case, numeric parsing, key names).
func (c *Command) StringArgs() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = string(a)
	}
	return out
}
