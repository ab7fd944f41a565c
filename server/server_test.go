package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"
)

func TestServe(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()

	testErr := fmt.Errorf("oh no!")

	t.Run("a conn func error closes only that connection", func(t *testing.T) {
		l, err := net.Listen("unix", path.Join(dir, "one"))
		if err != nil {
			t.Fatal(err)
		}

		is := is.New(t)
		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		survived := atomic.Int32{}
		s := Server{
			config: &Config{},
			l:      l,
			connFunc: func(ctx context.Context, conn net.Conn) error {
				r := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
				line, _, err := r.ReadLine()
				if err != nil {
					return nil
				}
				if string(line) == "PING" {
					_, _ = r.WriteString("PONG\r\n")
					_ = r.Flush()
				}
				if string(line) == "BAD" {
					return testErr
				}
				survived.Add(1)
				return nil
			},
			log: slog.Default(),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.Serve(ctx) })

		g.Go(func() error {
			conn, err := net.Dial(l.Addr().Network(), l.Addr().String())
			if err != nil {
				return err
			}
			defer conn.Close()
			if _, err := conn.Write([]byte("BAD\n\r")); err != nil {
				return err
			}
			return nil
		})

		g.Go(func() error {
			conn, err := net.Dial(l.Addr().Network(), l.Addr().String())
			if err != nil {
				return err
			}
			defer conn.Close()
			if _, err := conn.Write([]byte("PING\n\r")); err != nil {
				return err
			}
			buf := make([]byte, 16)
			n, err := conn.Read(buf)
			if err != nil {
				return err
			}
			if string(buf[:n]) != "PONG\r\n" {
				return fmt.Errorf("unexpected reply %q", buf[:n])
			}
			return nil
		})

		// Serve only returns once ctx expires, so the group ends with the
		// deadline error unless a client failed first.
		err = g.Wait()
		is.True(errors.Is(err, context.DeadlineExceeded))

		cancel()
		<-gctx.Done()
		is.Equal(survived.Load(), int32(1))
	})

	t.Run("can handle multiple conns at once", func(t *testing.T) {
		l, err := net.Listen("unix", path.Join(dir, "many"))
		if err != nil {
			t.Fatal(err)
		}

		is := is.New(t)
		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		attempts := 100
		counter := atomic.Int32{}

		s := Server{
			&Config{},
			l,
			func(ctx context.Context, conn net.Conn) error {
				time.Sleep(time.Millisecond)
				counter.Add(1)
				return nil
			},
			slog.Default(),
		}

		p := pool.New().WithErrors()
		p.Go(func() error {
			return s.Serve(ctx)
		})

		for i := 0; i < attempts; i++ {
			p.Go(func() error {
				conn, err := net.Dial(l.Addr().Network(), l.Addr().String())
				if err != nil {
					return err
				}
				defer conn.Close()
				_, err = conn.Write([]byte("ping\r\n"))
				if err != nil {
					return err
				}
				return nil
			})
		}

		err = p.Wait()
		is.True(errors.Is(err, context.DeadlineExceeded))
		is.Equal(counter.Load(), int32(attempts))
	})
}
