package catalog

import (
	"strconv"
	"time"

	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
)

func listCommands() []*Command {
	return []*Command{
		{
			Name: "LPUSH", MinArgs: 2, MaxArgs: -1, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return pushExec(ctx, args, false)
			},
		},
		{
			Name: "RPUSH", MinArgs: 2, MaxArgs: -1, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				return pushExec(ctx, args, true)
			},
		},
		{
			Name: "LPOP", MinArgs: 1, MaxArgs: 1, IsWrite: true,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				v, ok, err := ctx.Store().Pop(string(args[0]), true)
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
			Name: "LRANGE", MinArgs: 3, MaxArgs: 3,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				start, err := strconv.ParseInt(string(args[1]), 10, 64)
				if err != nil {
					return nil, store.ErrNotInteger
				}
				stop, err := strconv.ParseInt(string(args[2]), 10, 64)
				if err != nil {
					return nil, store.ErrNotInteger
				}
				items, err := ctx.Store().Range(string(args[0]), start, stop)
				if err != nil {
					return nil, err
				}
				return bulkArray(items), nil
			},
		},
		{
			Name: "LLEN", MinArgs: 1, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				n, err := ctx.Store().Len(string(args[0]))
				if err != nil {
					return nil, err
				}
				return resp.NewInt(n), nil
			},
		},
		{
			Name: "BLPOP", MinArgs: 2, MaxArgs: -1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				n := len(args)
				keys := stringsOf(args[:n-1])
				seconds, err := strconv.ParseFloat(string(args[n-1]), 64)
				if err != nil {
					return nil, store.ErrNotInteger
				}
				return blpop(ctx, keys, time.Duration(seconds*float64(time.Second)))
			},
		},
	}
}

func pushExec(ctx ExecContext, args [][]byte, right bool) (*resp.Value, error) {
	key := string(args[0])
	n, err := ctx.Store().Push(key, right, args[1:]...)
	if err != nil {
		return nil, err
	}
	ctx.Waiters().Notify(key)
	return resp.NewInt(n), nil
}

func bulkArray(items [][]byte) *resp.Value {
	vs := make([]*resp.Value, len(items))
	for i, it := range items {
		vs[i] = resp.NewBulkString(it)
	}
	return resp.NewArray(vs...)
}

// tryPopAny attempts LPOP on each key in order, returning the first that
// yields an element.
func tryPopAny(s *store.Store, keys []string) (key string, value []byte, ok bool, err error) {
	for _, k := range keys {
		v, popped, err := s.Pop(k, true)
		if err != nil {
			return "", nil, false, err
		}
		if popped {
			return k, v, true, nil
		}
	}
	return "", nil, false, nil
}

// blpop implements BLPOP's immediate-pop-else-suspend protocol, re-checking
// keys in argument order on every wake until an element is available or the
// original deadline elapses.
func blpop(ctx ExecContext, keys []string, timeout time.Duration) (*resp.Value, error) {
	if k, v, ok, err := tryPopAny(ctx.Store(), keys); err != nil {
		return nil, err
	} else if ok {
		return resp.NewArray(resp.NewBulkStringFrom(k), resp.NewBulkString(v)), nil
	}

	var deadline int64
	if timeout > 0 {
		deadline = ctx.Clock().NowMillis() + timeout.Milliseconds()
	}

	for {
		var remaining time.Duration
		if deadline != 0 {
			remaining = time.Duration(deadline-ctx.Clock().NowMillis()) * time.Millisecond
			if remaining <= 0 {
				return resp.NewNullArray(), nil
			}
		}

		w := ctx.Waiters().Register(keys, remaining)

		select {
		case res := <-w.Done:
			if res.TimedOut {
				return resp.NewNullArray(), nil
			}
		case <-ctx.Context().Done():
			ctx.Waiters().Cancel(w)
			return nil, nil
		}

		k, v, ok, err := tryPopAny(ctx.Store(), keys)
		if err != nil {
			return nil, err
		}
		if ok {
			return resp.NewArray(resp.NewBulkStringFrom(k), resp.NewBulkString(v)), nil
		}
		// spurious wake (e.g. the push landed on a key but another
		// concurrent BLPOP's retry beat us to it) — loop and re-register
		// against whatever time remains on the original deadline.
	}
}
