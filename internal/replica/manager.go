// Package replica implements the master side of replication: the replica
// registry, write-command fan-out, offset accounting, and the WAIT barrier.
//
// Grounded on anarchoredis/replication/replication.go's Subscriber, which
// implements the same PING/REPLCONF/PSYNC/REPLCONF-ACK wire shapes from the
// replica's point of view; the master side here drives the same exchange
// in the other direction and tracks the bookkeeping the Subscriber pushes
// onto the wire (offset, replication id).
package replica

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/awinterman/respd/internal/resp"
)

// emptyRDBBase64 is a canonical minimal empty-RDB payload, sourced from a
// captured real Redis snapshot so replicas that inspect the header see a
// well-formed (if empty) file.
const emptyRDBBase64 = "UkVESVMwMDEx+glyZWRpcy12ZXIFNy4yLjD6CnJlZGlzLWJpdHPAQPoFY3RpbWXCbQi8ZfoIdXNlZC1tZW3CsMQQAPoIYW9mLWJhc2XAAP/wbjv+wP9aog=="

// EmptyRDB is the decoded bulk-framed snapshot body sent as the FULLRESYNC
// payload. It is fixed for the lifetime of the process.
var EmptyRDB []byte

func init() {
	b, err := base64.StdEncoding.DecodeString(emptyRDBBase64)
	if err != nil {
		panic("replica: malformed embedded empty RDB: " + err.Error())
	}
	EmptyRDB = b
}

// Replica is one connected, fully-synced replica connection.
type Replica struct {
	id   uint64
	conn *resp.Conn
	addr string

	wMu sync.Mutex

	mu          sync.Mutex
	ackedOffset int64
}

// Addr is the replica's remote address, for diagnostics.
func (r *Replica) Addr() string { return r.addr }

// AckedOffset returns the last offset this replica has acknowledged.
func (r *Replica) AckedOffset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ackedOffset
}

func (r *Replica) setAcked(offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset > r.ackedOffset {
		r.ackedOffset = offset
	}
}

// send writes a pre-encoded frame directly to the replica's connection.
// Serialized against other sends to the same replica so GETACK probes and
// propagated writes never interleave mid-frame.
func (r *Replica) send(frame []byte) error {
	r.wMu.Lock()
	defer r.wMu.Unlock()
	if err := r.conn.WriteRaw(frame); err != nil {
		return err
	}
	return r.conn.Flush()
}

// Manager owns the replica registry, the monotonically increasing master
// offset, and WAIT coordination.
type Manager struct {
	mu       sync.Mutex
	cond     *sync.Cond
	replicas map[uint64]*Replica
	nextID   uint64

	masterOffset int64
	replID       string

	log *slog.Logger
}

// New builds an empty Manager with a freshly generated replication id.
func New() *Manager {
	m := &Manager{
		replicas: make(map[uint64]*Replica),
		replID:   genReplID(),
		log:      slog.With("comp", "replica"),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func genReplID() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic("replica: failed to seed replication id: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// ReplID is the master's replication id, reported in FULLRESYNC and INFO.
func (m *Manager) ReplID() string { return m.replID }

// MasterOffset is the current total bytes propagated.
func (m *Manager) MasterOffset() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.masterOffset
}

// Register promotes conn to a tracked replica with offset_acked = 0 and
// returns its handle.
func (m *Manager) Register(conn *resp.Conn, addr string) *Replica {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r := &Replica{id: m.nextID, conn: conn, addr: addr}
	m.replicas[r.id] = r
	m.log.Info("replica registered", "addr", addr, "id", r.id)
	return r
}

// Remove drops a replica's record, e.g. after a connection error.
func (m *Manager) Remove(r *Replica) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replicas, r.id)
	m.cond.Broadcast()
}

// Count reports how many replicas are currently registered.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replicas)
}

// snapshot returns the current replica set without holding mu during I/O.
func (m *Manager) snapshot() []*Replica {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Replica, 0, len(m.replicas))
	for _, r := range m.replicas {
		out = append(out, r)
	}
	return out
}

// Propagate forwards frame — the exact RESP-encoded write command, already
// normalized to upper-case — to every registered replica and advances the
// master offset by its length. Errors writing to an individual replica
// remove that replica; they never prevent delivery to the others.
func (m *Manager) Propagate(frame []byte) {
	m.mu.Lock()
	m.masterOffset += int64(len(frame))
	m.mu.Unlock()

	for _, r := range m.snapshot() {
		if err := r.send(frame); err != nil {
			m.log.Warn("propagation failed, dropping replica", "addr", r.addr, "err", err)
			m.Remove(r)
		}
	}
}

// getAckFrame is the fixed encoding of "REPLCONF GETACK *".
var getAckFrame = mustEncodeCommand("REPLCONF", "GETACK", "*")

func mustEncodeCommand(parts ...string) []byte {
	b, err := resp.Marshal(resp.NewCommand(parts...))
	if err != nil {
		panic("replica: failed to encode GETACK probe: " + err.Error())
	}
	return b
}

// RequestAcks sends REPLCONF GETACK * to every replica, counted against the
// master offset like any other propagated frame (mainline Redis does the
// same).
func (m *Manager) RequestAcks() {
	m.mu.Lock()
	m.masterOffset += int64(len(getAckFrame))
	m.mu.Unlock()

	for _, r := range m.snapshot() {
		if err := r.send(getAckFrame); err != nil {
			m.log.Warn("GETACK probe failed, dropping replica", "addr", r.addr, "err", err)
			m.Remove(r)
		}
	}
}

// Ack records a REPLCONF ACK <offset> received from r.
func (m *Manager) Ack(r *Replica, offset int64) {
	r.setAcked(offset)
	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
}

// CountAcked reports how many currently-registered replicas have
// acknowledged at least threshold bytes.
func (m *Manager) CountAcked(threshold int64) int {
	n := 0
	for _, r := range m.snapshot() {
		if r.AckedOffset() >= threshold {
			n++
		}
	}
	return n
}

// Wait blocks until at least n replicas have acknowledged the master
// offset as it stood at call time, or timeout elapses (timeout == 0 means
// wait forever). It requests fresh acks immediately, and returns the
// count of satisfying replicas at resolution time, which may exceed n.
func (m *Manager) Wait(n int, timeout time.Duration) int {
	target := m.MasterOffset()
	if n <= 0 {
		return m.CountAcked(target)
	}

	if got := m.CountAcked(target); got >= n {
		return got
	}

	m.RequestAcks()

	done := make(chan struct{})
	var timer *time.Timer
	if timeout > 0 {
		// Broadcast while holding mu: the background goroutine below holds
		// mu at every point except inside cond.Wait(), so acquiring it here
		// guarantees the wakeup is never lost to the classic
		// check-then-wait race.
		timer = time.AfterFunc(timeout, func() {
			close(done)
			m.mu.Lock()
			m.cond.Broadcast()
			m.mu.Unlock()
		})
		defer timer.Stop()
	}

	result := make(chan int, 1)
	go func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for {
			got := m.countAckedLocked(target)
			if got >= n {
				result <- got
				return
			}
			select {
			case <-done:
				result <- m.countAckedLocked(target)
				return
			default:
			}
			m.cond.Wait()
		}
	}()

	select {
	case got := <-result:
		return got
	case <-done:
		// wake the waiting goroutine so it re-checks and exits; it may
		// already be past its cond.Wait if a broadcast raced us here.
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
		return <-result
	}
}

func (m *Manager) countAckedLocked(threshold int64) int {
	n := 0
	for _, r := range m.replicas {
		if r.AckedOffset() >= threshold {
			n++
		}
	}
	return n
}

// Info renders the fields INFO replication reports.
type Info struct {
	Role           string
	ConnectedSlaves int
	MasterReplID   string
	MasterReplOffset int64
}

// InfoReplication reports the current master-side replication state.
func (m *Manager) InfoReplication() Info {
	return Info{
		Role:             "master",
		ConnectedSlaves:  m.Count(),
		MasterReplID:     m.replID,
		MasterReplOffset: m.MasterOffset(),
	}
}
