// Package catalog is the command table: for every supported command, its
// arity, its write/transaction-control flags, and the executor function
// that carries it out against a Store, Waiter Registry, and Replica
// Manager.
//
// Grounded on protocol/commands.go's cmdSpec table (name -> spec of
// key-extraction + category flags) — generalized from "does this command
// touch the store" bookkeeping into a full executor record, since this
// module actually runs the commands rather than only classifying them for
// AOF parsing.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/awinterman/respd/internal/clock"
	"github.com/awinterman/respd/internal/replica"
	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
	"github.com/awinterman/respd/internal/waiter"
)

// ExecContext is everything an executor needs, supplied by the session
// that owns the connection. It is an interface, not a concrete session
// type, so this package never imports internal/session.
type ExecContext interface {
	Store() *store.Store
	Waiters() *waiter.Registry
	Clock() clock.Clock
	Replicas() *replica.Manager
	Conn() *resp.Conn

	// Context is canceled when the owning connection disconnects, used to
	// abort in-progress blocking commands (BLPOP, XREAD BLOCK, WAIT).
	Context() context.Context

	// ReplicaHandle is non-nil once this connection has completed PSYNC.
	ReplicaHandle() *replica.Replica
	// PromoteToReplica registers this connection as a replica and records
	// the handle for future REPLCONF ACK routing.
	PromoteToReplica(addr string) *replica.Replica
}

// ErrInvalidCommand mirrors protocol/commands.go's sentinel for a
// malformed or unrecognized command frame.
var ErrInvalidCommand = fmt.Errorf("invalid command")

// Exec runs a command's business logic. A (nil, nil) return means the
// executor already wrote its own reply bytes (PSYNC) or that no reply is
// due at all (REPLCONF ACK from a replica).
type Exec func(ctx ExecContext, args [][]byte) (*resp.Value, error)

// Command is one catalog entry.
type Command struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means unbounded
	IsWrite bool
	// IsTransactionControl marks MULTI/EXEC/DISCARD: never queued, and
	// handled directly by the connection FSM rather than via Exec.
	IsTransactionControl bool
	Exec                 Exec
}

// arityOK reports whether nargs (the argument count after the command
// name) satisfies this command's declared bounds.
func (c *Command) arityOK(nargs int) bool {
	if nargs < c.MinArgs {
		return false
	}
	if c.MaxArgs >= 0 && nargs > c.MaxArgs {
		return false
	}
	return true
}

// Registry is the case-insensitive command table.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry builds the full catalog of supported commands.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]*Command)}
	for _, c := range allCommands() {
		r.commands[c.Name] = c
	}
	return r
}

// Lookup finds a command by name, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.commands[strings.ToUpper(name)]
	return c, ok
}

// ErrUnknownCommand renders the bit-exact unknown-command reply text.
func ErrUnknownCommand(name string) error {
	return fmt.Errorf("ERR unknown command '%s'", name)
}

// ErrArity renders the bit-exact wrong-arity reply text.
func ErrArity(name string) error {
	return fmt.Errorf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))
}

// CheckArity validates nargs against c's declared bounds, returning the
// exact protocol error text on mismatch.
func (c *Command) CheckArity(nargs int) error {
	if !c.arityOK(nargs) {
		return ErrArity(c.Name)
	}
	return nil
}

func allCommands() []*Command {
	var cmds []*Command
	cmds = append(cmds, genericCommands()...)
	cmds = append(cmds, stringCommands()...)
	cmds = append(cmds, listCommands()...)
	cmds = append(cmds, streamCommands()...)
	cmds = append(cmds, transactionCommands()...)
	cmds = append(cmds, replicationCommands()...)
	return cmds
}
