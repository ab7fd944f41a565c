package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awinterman/respd/internal/replica"
	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
)

func replicationCommands() []*Command {
	return []*Command{
		{
			Name: "REPLCONF", MinArgs: 1, MaxArgs: -1,
			Exec: execReplConf,
		},
		{
			Name: "PSYNC", MinArgs: 2, MaxArgs: 2,
			Exec: execPsync,
		},
		{
			Name: "WAIT", MinArgs: 2, MaxArgs: 2,
			Exec: execWait,
		},
		{
			Name: "INFO", MinArgs: 0, MaxArgs: 1,
			Exec: execInfo,
		},
	}
}

// execReplConf handles every REPLCONF subcommand this server needs to
// understand as a master: listening-port and capa are acknowledged during
// the handshake, ACK updates the calling replica's offset (and elicits no
// reply, matching mainline Redis), and anything else is accepted with +OK
// for forward-compatibility.
func execReplConf(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	switch strings.ToUpper(string(args[0])) {
	case "ACK":
		if len(args) != 2 {
			return nil, ErrInvalidCommand
		}
		offset, err := strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil {
			return nil, store.ErrNotInteger
		}
		if r := ctx.ReplicaHandle(); r != nil {
			ctx.Replicas().Ack(r, offset)
		}
		return nil, nil
	default:
		return resp.NewSimpleString("OK"), nil
	}
}

// execPsync drives the final handshake step: it writes the FULLRESYNC
// reply and the bulk-framed empty RDB snapshot directly to the connection,
// then promotes it to a tracked replica. No further reply is queued by the
// caller since the handshake bytes are already on the wire.
func execPsync(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	conn := ctx.Conn()
	mgr := ctx.Replicas()

	line := fmt.Sprintf("+FULLRESYNC %s %d\r\n", mgr.ReplID(), mgr.MasterOffset())
	if err := conn.WriteRaw([]byte(line)); err != nil {
		return nil, err
	}

	header := fmt.Sprintf("$%d\r\n", len(replica.EmptyRDB))
	if err := conn.WriteRaw([]byte(header)); err != nil {
		return nil, err
	}
	if err := conn.WriteRaw(replica.EmptyRDB); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	ctx.PromoteToReplica(conn.RemoteAddr().String())
	return nil, nil
}

func execWait(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	n, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return nil, store.ErrNotInteger
	}
	timeoutMs, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return nil, store.ErrNotInteger
	}
	got := ctx.Replicas().Wait(n, time.Duration(timeoutMs)*time.Millisecond)
	return resp.NewInt(int64(got)), nil
}

func execInfo(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	info := ctx.Replicas().InfoReplication()
	body := fmt.Sprintf(
		"# Replication\r\nrole:%s\r\nconnected_slaves:%d\r\nmaster_replid:%s\r\nmaster_repl_offset:%d\r\n",
		info.Role, info.ConnectedSlaves, info.MasterReplID, info.MasterReplOffset,
	)
	return resp.NewBulkStringFrom(body), nil
}
