// Package session implements the per-connection finite-state machine:
// Normal vs. Queuing (MULTI/EXEC/DISCARD) mode, command dispatch through
// the catalog, write propagation to replicas, and the master side of the
// replica handshake.
//
// Grounded on txn/txn.go's Transact — a read-dispatch-write loop over one
// client connection and one upstream connection — generalized from a
// thin command-forwarding proxy into the actual executor loop, since this
// module owns the store directly instead of relaying to a real Redis.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/awinterman/respd/internal/catalog"
	"github.com/awinterman/respd/internal/clock"
	"github.com/awinterman/respd/internal/replica"
	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
	"github.com/awinterman/respd/internal/waiter"
)

// Mode is the connection's transaction state.
type Mode int

const (
	ModeNormal Mode = iota
	ModeQueuing
)

// Role distinguishes an ordinary client connection from one that has
// completed the replica handshake.
type Role int

const (
	RoleClient Role = iota
	RoleReplica
)

// Deps bundles the process-wide singletons every session shares.
type Deps struct {
	Store    *store.Store
	Waiters  *waiter.Registry
	Clock    clock.Clock
	Replicas *replica.Manager
	Catalog  *catalog.Registry
	MaxBulk  int64
}

// Session is one connection's FSM plus its bound dependencies. It
// implements catalog.ExecContext so executors can reach the shared store,
// waiter registry, and replica manager through this connection's view.
type Session struct {
	deps Deps
	conn *resp.Conn

	ctx    context.Context
	cancel context.CancelFunc

	mode     Mode
	role     Role
	queue    []*resp.Command
	poisoned bool

	replicaHandle *replica.Replica

	log *slog.Logger
}

// New builds a Session bound to conn and ready to run.
func New(ctx context.Context, conn net.Conn, deps Deps) *Session {
	cctx, cancel := context.WithCancel(ctx)
	return &Session{
		deps:   deps,
		conn:   resp.NewConn(conn, deps.MaxBulk),
		ctx:    cctx,
		cancel: cancel,
		log:    slog.With("comp", "session", "remote", conn.RemoteAddr().String()),
	}
}

// Handle is a server.ConnFunc: it builds a Session over conn, bound to
// deps, and runs it to completion.
func Handle(deps Deps) func(context.Context, net.Conn) error {
	return func(ctx context.Context, conn net.Conn) error {
		s := New(ctx, conn, deps)
		return s.Run()
	}
}

// --- catalog.ExecContext ---

func (s *Session) Store() *store.Store            { return s.deps.Store }
func (s *Session) Waiters() *waiter.Registry       { return s.deps.Waiters }
func (s *Session) Clock() clock.Clock              { return s.deps.Clock }
func (s *Session) Replicas() *replica.Manager      { return s.deps.Replicas }
func (s *Session) Conn() *resp.Conn                { return s.conn }
func (s *Session) Context() context.Context        { return s.ctx }
func (s *Session) ReplicaHandle() *replica.Replica { return s.replicaHandle }

func (s *Session) PromoteToReplica(addr string) *replica.Replica {
	s.role = RoleReplica
	s.replicaHandle = s.deps.Replicas.Register(s.conn, addr)
	return s.replicaHandle
}

// Run is the connection's read-dispatch-write loop. It returns when the
// socket errors, the client disconnects, or ctx is cancelled.
func (s *Session) Run() error {
	defer s.cleanup()

	for {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}

		v, err := s.conn.Read()
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) {
				_ = s.replyAndFlush(resp.NewError(resp.ErrProtocol.Error()))
			}
			return err
		}

		cmd, err := v.Cmd()
		if err != nil {
			if err := s.replyAndFlush(resp.NewError(err.Error())); err != nil {
				return err
			}
			continue
		}

		if err := s.dispatch(cmd); err != nil {
			return err
		}
	}
}

func (s *Session) cleanup() {
	s.cancel()
	if s.replicaHandle != nil {
		s.deps.Replicas.Remove(s.replicaHandle)
	}
	_ = s.conn.Close()
}

// dispatch routes one received frame per the connection FSM in §4.D:
// transaction-control commands always run immediately; in Queuing mode
// everything else is appended to the queue; otherwise it runs now.
func (s *Session) dispatch(cmd *resp.Command) error {
	spec, ok := s.deps.Catalog.Lookup(cmd.Name)
	if !ok {
		if s.mode == ModeQueuing {
			s.poisoned = true
		}
		return s.replyAndFlush(resp.NewError(catalog.ErrUnknownCommand(cmd.Name).Error()))
	}

	if spec.IsTransactionControl {
		return s.dispatchTxnControl(spec)
	}

	if s.mode == ModeQueuing {
		return s.replyAndFlush(s.enqueue(cmd, spec))
	}

	reply, err := s.runCommand(cmd, spec)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	return s.replyAndFlush(reply)
}

func (s *Session) enqueue(cmd *resp.Command, spec *catalog.Command) *resp.Value {
	if err := spec.CheckArity(len(cmd.Args)); err != nil {
		s.poisoned = true
		return resp.NewError(err.Error())
	}
	s.queue = append(s.queue, cmd)
	return resp.NewSimpleString("QUEUED")
}

func (s *Session) dispatchTxnControl(spec *catalog.Command) error {
	switch spec.Name {
	case "MULTI":
		return s.replyAndFlush(s.handleMulti())
	case "DISCARD":
		return s.replyAndFlush(s.handleDiscard())
	case "EXEC":
		return s.replyAndFlush(s.handleExec())
	default:
		return s.replyAndFlush(resp.NewError(catalog.ErrUnknownCommand(spec.Name).Error()))
	}
}

func (s *Session) handleMulti() *resp.Value {
	if s.mode == ModeQueuing {
		return resp.NewError("ERR MULTI calls can not be nested")
	}
	s.mode = ModeQueuing
	s.queue = nil
	s.poisoned = false
	return resp.NewSimpleString("OK")
}

func (s *Session) handleDiscard() *resp.Value {
	if s.mode != ModeQueuing {
		return resp.NewError("ERR DISCARD without MULTI")
	}
	s.mode = ModeNormal
	s.queue = nil
	s.poisoned = false
	return resp.NewSimpleString("OK")
}

func (s *Session) handleExec() *resp.Value {
	if s.mode != ModeQueuing {
		return resp.NewError("ERR EXEC without MULTI")
	}

	queue := s.queue
	poisoned := s.poisoned
	s.mode = ModeNormal
	s.queue = nil
	s.poisoned = false

	if poisoned {
		return resp.NewError("EXECABORT Transaction discarded because of previous errors.")
	}

	replies := make([]*resp.Value, 0, len(queue))
	for _, qc := range queue {
		spec, ok := s.deps.Catalog.Lookup(qc.Name)
		if !ok {
			replies = append(replies, resp.NewError(catalog.ErrUnknownCommand(qc.Name).Error()))
			continue
		}
		reply, err := s.runCommand(qc, spec)
		if err != nil {
			// runCommand reports failures as error replies, so err is nil
			// here; a non-nil err would be recorded as this command's
			// reply and the rest of the queue would still run.
			replies = append(replies, resp.NewError(err.Error()))
			continue
		}
		if reply == nil {
			reply = resp.NewNullBulk()
		}
		replies = append(replies, reply)
	}
	return resp.NewArray(replies...)
}

// runCommand validates arity, executes spec against this session, and
// propagates the frame to replicas if the command is a write that
// succeeded. Every failure, including an I/O error from an executor that
// writes directly to the connection (PSYNC), is folded into the returned
// *resp.Value as an error reply; the returned error is always nil.
func (s *Session) runCommand(cmd *resp.Command, spec *catalog.Command) (*resp.Value, error) {
	if err := spec.CheckArity(len(cmd.Args)); err != nil {
		return resp.NewError(err.Error()), nil
	}

	reply, err := spec.Exec(s, cmd.Args)
	if err != nil {
		return resp.NewError(err.Error()), nil
	}

	if spec.IsWrite {
		s.propagate(cmd)
	}

	return reply, nil
}

func (s *Session) propagate(cmd *resp.Command) {
	parts := make([]*resp.Value, 0, len(cmd.Args)+1)
	parts = append(parts, resp.NewBulkStringFrom(cmd.Name))
	for _, a := range cmd.Args {
		parts = append(parts, resp.NewBulkString(a))
	}

	frame, err := resp.Marshal(resp.NewArray(parts...))
	if err != nil {
		s.log.Error("failed to encode propagated frame", "cmd", cmd.Name, "err", err)
		return
	}
	s.deps.Replicas.Propagate(frame)
}

func (s *Session) replyAndFlush(v *resp.Value) error {
	if err := s.conn.Write(v); err != nil {
		return err
	}
	return s.conn.Flush()
}
