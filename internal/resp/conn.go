// Copyright 2024 Outreach Corporation. All Rights Reserved.

package resp

import (
	"bufio"
	"log/slog"
	"net"
)

// Conn pairs a buffered Parser/Encoder with a net.Conn. It is owned by a
// single connection's goroutine; Read/Write/Flush are not internally
// synchronized because the connection FSM never calls them concurrently
// with itself.
type Conn struct {
	net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	parser  *Parser
	encoder *Encoder
	Logger  *slog.Logger
}

// NewConn wraps conn for RESP framing. maxBulkLen<=0 selects DefaultMaxBulkLen.
func NewConn(conn net.Conn, maxBulkLen int64) *Conn {
	r := bufio.NewReader(conn)
	return &Conn{
		Conn:    conn,
		r:       r,
		w:       bufio.NewWriter(conn),
		parser:  NewParser(r, maxBulkLen),
		encoder: NewEncoder(),
		Logger:  slog.With("comp", "conn"),
	}
}

// Read parses the next frame.
func (c *Conn) Read() (*Value, error) {
	return c.parser.Read()
}

// Write buffers v for the next Flush.
func (c *Conn) Write(v *Value) error {
	return c.encoder.Write(c.w, v)
}

// WriteRaw writes pre-encoded bytes directly, used for the RDB payload
// framing during FULLRESYNC.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.w.Write(b)
	return err
}

// Flush drains buffered writes to the socket.
func (c *Conn) Flush() error {
	return c.w.Flush()
}
