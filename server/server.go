package server

import (
	"context"
	"log/slog"
	"net"
)

type ConnFunc func(context.Context, net.Conn) error

// Server creates a new server
type Server struct {
	config *Config

	l net.Listener

	connFunc ConnFunc

	log *slog.Logger
}

// New creates a new server
func New(ctx context.Context, config *Config, f ConnFunc) (*Server, error) {
	var lc = net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", config.Address)
	if err != nil {
		return nil, err
	}

	return &Server{config, listener, f, slog.Default()}, nil
}

// Serve accepts connections until ctx is cancelled or the listener errors.
// Each connection runs on its own goroutine; a connection's error closes
// only that connection, never the listener or its peers.
func (r *Server) Serve(ctx context.Context) error {
	r.log.Info("listening", "addr", r.l.Addr().String(), "network", r.l.Addr().Network())
	go func() {
		<-ctx.Done()
		r.l.Close()
	}()

	for {
		conn, err := r.l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		r.log.Info("got conn", "local", conn.LocalAddr().String(), "remote", conn.RemoteAddr().String(), "network", conn.RemoteAddr().Network())

		go func() {
			if err := r.connFunc(ctx, conn); err != nil {
				r.log.Info("connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}
