package catalog

import "github.com/awinterman/respd/internal/resp"

func genericCommands() []*Command {
	return []*Command{
		{
			Name: "PING", MinArgs: 0, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				if len(args) == 1 {
					return resp.NewBulkString(args[0]), nil
				}
				return resp.NewSimpleString("PONG"), nil
			},
		},
		{
			Name: "ECHO", MinArgs: 1, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return resp.NewBulkString(args[0]), nil
			},
		},
		{
			Name: "TYPE", MinArgs: 1, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return resp.NewSimpleString(ctx.Store().Type(string(args[0]))), nil
			},
		},
		{
			Name: "DEL", MinArgs: 1, MaxArgs: -1, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return resp.NewInt(ctx.Store().Del(stringsOf(args)...)), nil
			},
		},
		{
			Name: "EXISTS", MinArgs: 1, MaxArgs: -1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return resp.NewInt(ctx.Store().Exists(stringsOf(args)...)), nil
			},
		},
	}
}

func stringsOf(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}
