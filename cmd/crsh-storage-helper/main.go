// Command crsh-storage-helper is the ccache remote storage helper
// daemon: it binds a local IPC endpoint, speaks the binary framed
// protocol described by internal/ipc, and serves each request by
// translating it into an HTTP round trip against the remote object
// store configured through CRSH_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccache/crsh/internal/config"
	"github.com/ccache/crsh/internal/ipc"
	"github.com/ccache/crsh/internal/logger"
	"github.com/ccache/crsh/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "crsh-storage-helper: "+err.Error())
		return 1
	}

	log := logger.New(cfg.LogPath)
	log.Info("starting",
		"endpoint", cfg.IPCEndpoint,
		"url", cfg.URL,
		"layout", cfg.Layout.String(),
		"idle_timeout_seconds", cfg.IdleTimeoutSeconds,
	)

	storeClient := store.New(cfg, log)
	server := ipc.New(cfg, log, storeClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("listen failed", "error", err)
		fmt.Fprintln(os.Stderr, "crsh-storage-helper: "+err.Error())
		return 1
	}

	log.Info("shut down cleanly")
	return 0
}
