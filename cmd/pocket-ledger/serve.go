package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocket-ledger/pkg/api"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over a local HTTP API" }
func (*serveCmd) Usage() string {
	return `pocket-ledger serve [-addr <host:port>]

  Serves the JSON API and Prometheus metrics until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address; overrides api.address.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	cfg := api.ServerConfig{
		Address:      a.cfg.API.Address,
		ReadTimeout:  a.cfg.API.ReadTimeout,
		WriteTimeout: a.cfg.API.WriteTimeout,
	}
	if c.addr != "" {
		cfg.Address = c.addr
	}

	server := api.NewServer(a.store, a.backend, a.registry, cfg)
	if err := server.Start(); err != nil {
		return fail(err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		a.logger.Error("shutdown failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	if err := a.store.Flush(shutdownCtx); err != nil {
		a.logger.Error("final flush failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
