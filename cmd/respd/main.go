package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/awinterman/respd/server"
)

func main() {
	ctx := context.Background()
	if err := server.Run(ctx); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}
