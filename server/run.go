package server

import (
	"context"
	"log/slog"

	"github.com/awinterman/respd/internal/catalog"
	"github.com/awinterman/respd/internal/clock"
	"github.com/awinterman/respd/internal/replica"
	"github.com/awinterman/respd/internal/session"
	"github.com/awinterman/respd/internal/store"
	"github.com/awinterman/respd/internal/waiter"
)

// Run parses configuration, wires the store/waiter/replica/catalog
// singletons into a session.Deps, and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	config := &Config{}
	if err := config.Parse(); err != nil {
		return err
	}

	if len(config.ReplicaOf) > 0 {
		slog.Warn("--replicaof given; this build only implements master-side replication and will ignore it", "replicaof", config.ReplicaOf)
	}

	deps := session.Deps{
		Store:    store.New(clock.System{}),
		Waiters:  waiter.New(),
		Clock:    clock.System{},
		Replicas: replica.New(),
		Catalog:  catalog.NewRegistry(),
		MaxBulk:  config.getMaxSize(),
	}

	srv, err := New(ctx, config, session.Handle(deps))
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
