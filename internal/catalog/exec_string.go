package catalog

import (
	"strconv"
	"strings"

	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
)

func stringCommands() []*Command {
	return []*Command{
		{
			Name: "GET", MinArgs: 1, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				v, ok, err := ctx.Store().Get(string(args[0]))
				if err != nil {
					return nil, err
				}
				if !ok {
					return resp.NewNullBulk(), nil
				}
				return resp.NewBulkString(v), nil
			},
		},
		{
			Name: "SET", MinArgs: 2, MaxArgs: 4, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				opts, err := parseSetOptions(ctx, args[2:])
				if err != nil {
					return nil, err
				}
				ctx.Store().Set(string(args[0]), args[1], opts)
				return resp.NewSimpleString("OK"), nil
			},
		},
		{
			Name: "INCR", MinArgs: 1, MaxArgs: 1, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				n, err := ctx.Store().Incr(string(args[0]))
				if err != nil {
					return nil, err
				}
				return resp.NewInt(n), nil
			},
		},
	}
}

// parseSetOptions reads the optional EX <seconds> | PX <milliseconds>
// trailing arguments of SET.
func parseSetOptions(ctx ExecContext, rest [][]byte) (store.SetOptions, error) {
	if len(rest) == 0 {
		return store.SetOptions{}, nil
	}
	if len(rest) != 2 {
		return store.SetOptions{}, ErrInvalidCommand
	}
	switch strings.ToUpper(string(rest[0])) {
	case "EX":
		secs, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return store.SetOptions{}, store.ErrNotInteger
		}
		return store.SetOptions{ExpiresAtMillis: ctx.Clock().NowMillis() + secs*1000}, nil
	case "PX":
		ms, err := strconv.ParseInt(string(rest[1]), 10, 64)
		if err != nil {
			return store.SetOptions{}, store.ErrNotInteger
		}
		return store.SetOptions{ExpiresAtMillis: ctx.Clock().NowMillis() + ms}, nil
	default:
		return store.SetOptions{}, ErrInvalidCommand
	}
}
