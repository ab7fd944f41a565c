package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/awinterman/respd/internal/resp"
	"github.com/awinterman/respd/internal/store"
)

func streamCommands() []*Command {
	return []*Command{
		{
			Name: "XADD", MinArgs: 4, MaxArgs: -1, IsWrite: true,
			Exec: execXAdd,
		},
		{
			Name: "XRANGE", MinArgs: 3, MaxArgs: 3,
			Exec: execXRange,
		},
		{
			Name: "XLEN", MinArgs: 1, MaxArgs: 1,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				info, ok, err := ctx.Store().XInfoStream(string(args[0]))
				if err != nil {
					return nil, err
				}
				if !ok {
					return resp.NewInt(0), nil
				}
				return resp.NewInt(info.Length), nil
			},
		},
		{
			Name: "XREAD", MinArgs: 3, MaxArgs: -1,
			Exec: execXRead,
		},
		{
			Name: "XINFO", MinArgs: 2, MaxArgs: 2,
			Exec: func(ctx ExecContext, args [][]byte) (*resp.Value, error) {
				if strings.ToUpper(string(args[0])) != "STREAM" {
					return nil, ErrInvalidCommand
				}
				info, ok, err := ctx.Store().XInfoStream(string(args[1]))
				if err != nil {
					return nil, err
				}
				if !ok {
					return resp.NewNullArray(), nil
				}
				return encodeStreamInfo(info), nil
			},
		},
	}
}

func parseXAddID(ctx ExecContext, s string) (store.StreamIDRequest, error) {
	if s == "*" {
		return store.StreamIDRequest{Auto: true, NowMs: uint64(ctx.Clock().NowMillis())}, nil
	}
	if strings.HasSuffix(s, "-*") {
		msPart := strings.TrimSuffix(s, "-*")
		ms, err := strconv.ParseUint(msPart, 10, 64)
		if err != nil {
			return store.StreamIDRequest{}, store.ErrNotInteger
		}
		return store.StreamIDRequest{AutoSeqMs: &ms}, nil
	}
	id, err := store.ParseStreamID(s)
	if err != nil {
		return store.StreamIDRequest{}, err
	}
	return store.StreamIDRequest{Literal: &id}, nil
}

func execXAdd(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	key := string(args[0])
	req, err := parseXAddID(ctx, string(args[1]))
	if err != nil {
		return nil, err
	}

	rest := args[2:]
	if len(rest)%2 != 0 {
		return nil, ErrInvalidCommand
	}
	fields := make([]store.Field, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		fields = append(fields, store.Field{Name: string(rest[i]), Value: rest[i+1]})
	}

	id, err := ctx.Store().XAdd(key, req, fields)
	if err != nil {
		return nil, err
	}
	ctx.Waiters().Notify(key)
	return resp.NewBulkStringFrom(id.String()), nil
}

// parseRangeBound parses an XRANGE/XRANGE-style boundary: "-"/"+" for open
// ends, or a literal id (a bare ms defaults its seq to 0).
func parseRangeBound(s string) (store.RangeBound, error) {
	switch s {
	case "-":
		return store.RangeBound{Min: true}, nil
	case "+":
		return store.RangeBound{Max: true}, nil
	default:
		id, err := store.ParseStreamID(s)
		if err != nil {
			return store.RangeBound{}, err
		}
		return store.RangeBound{ID: id}, nil
	}
}

func execXRange(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	start, err := parseRangeBound(string(args[1]))
	if err != nil {
		return nil, err
	}
	end, err := parseRangeBound(string(args[2]))
	if err != nil {
		return nil, err
	}
	entries, err := ctx.Store().XRange(string(args[0]), start, end)
	if err != nil {
		return nil, err
	}
	return encodeEntries(entries), nil
}

func encodeEntries(entries []store.StreamEntry) *resp.Value {
	vs := make([]*resp.Value, len(entries))
	for i, e := range entries {
		vs[i] = encodeEntry(e)
	}
	return resp.NewArray(vs...)
}

func encodeEntry(e store.StreamEntry) *resp.Value {
	fields := make([]*resp.Value, 0, len(e.Fields)*2)
	for _, f := range e.Fields {
		fields = append(fields, resp.NewBulkStringFrom(f.Name), resp.NewBulkString(f.Value))
	}
	return resp.NewArray(
		resp.NewBulkStringFrom(e.ID.String()),
		resp.NewArray(fields...),
	)
}

func encodeStreamInfo(info *store.StreamInfo) *resp.Value {
	vs := []*resp.Value{
		resp.NewBulkStringFrom("length"), resp.NewInt(info.Length),
		resp.NewBulkStringFrom("last-generated-id"), resp.NewBulkStringFrom(info.LastID.String()),
	}
	if info.FirstEntry != nil {
		vs = append(vs, resp.NewBulkStringFrom("first-entry"), encodeEntry(*info.FirstEntry))
	} else {
		vs = append(vs, resp.NewBulkStringFrom("first-entry"), resp.NewNullArray())
	}
	if info.LastEntry != nil {
		vs = append(vs, resp.NewBulkStringFrom("last-entry"), encodeEntry(*info.LastEntry))
	} else {
		vs = append(vs, resp.NewBulkStringFrom("last-entry"), resp.NewNullArray())
	}
	return resp.NewArray(vs...)
}

// xreadRequest is one (key, baseline id) pair parsed from STREAMS k... id...
type xreadRequest struct {
	key      string
	baseline store.StreamID
}

func execXRead(ctx ExecContext, args [][]byte) (*resp.Value, error) {
	var blockTimeout time.Duration
	blocking := false
	i := 0
	if strings.ToUpper(string(args[0])) == "BLOCK" {
		if len(args) < 2 {
			return nil, ErrInvalidCommand
		}
		ms, err := strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil {
			return nil, store.ErrNotInteger
		}
		blocking = true
		blockTimeout = time.Duration(ms) * time.Millisecond
		i = 2
	}
	if i >= len(args) || strings.ToUpper(string(args[i])) != "STREAMS" {
		return nil, ErrInvalidCommand
	}
	i++
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, ErrInvalidCommand
	}
	n := len(rest) / 2
	reqs := make([]xreadRequest, n)
	for j := 0; j < n; j++ {
		key := string(rest[j])
		idArg := string(rest[n+j])
		var baseline store.StreamID
		if idArg == "$" {
			last, err := ctx.Store().LastID(key)
			if err != nil {
				return nil, err
			}
			baseline = last
		} else {
			id, err := store.ParseStreamID(idArg)
			if err != nil {
				return nil, err
			}
			baseline = id
		}
		reqs[j] = xreadRequest{key: key, baseline: baseline}
	}

	if v, ok, err := tryXRead(ctx, reqs); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}
	if !blocking {
		return resp.NewNullArray(), nil
	}

	var deadline int64
	if blockTimeout > 0 {
		deadline = ctx.Clock().NowMillis() + blockTimeout.Milliseconds()
	}
	keys := make([]string, n)
	for j, r := range reqs {
		keys[j] = r.key
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

		if v, ok, err := tryXRead(ctx, reqs); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
	}
}

// tryXRead evaluates every (key, baseline) pair against the current store
// and, if any has new entries, renders the full XREAD reply: an array of
// [key, [entries...]] pairs for only the streams that matched.
func tryXRead(ctx ExecContext, reqs []xreadRequest) (*resp.Value, bool, error) {
	var out []*resp.Value
	for _, r := range reqs {
		entries, _, err := ctx.Store().XAfter(r.key, r.baseline)
		if err != nil {
			return nil, false, err
		}
		if len(entries) == 0 {
			continue
		}
		out = append(out, resp.NewArray(resp.NewBulkStringFrom(r.key), encodeEntries(entries)))
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return resp.NewArray(out...), true, nil
}
