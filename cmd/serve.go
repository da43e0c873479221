package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/sp2yt/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(ctx); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}
	addr := cfg.Addr()

	api := server.NewAPI(r.converter, r.manager, cfg.UIURL, r.logger)
	router := server.NewRouter(api, cfg.SessionCookie, r.logger)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("serving", "addr", ln.Addr().String(), "store", r.config.Store.Driver)
	return server.Serve(ctx, server.NewHTTPServer(addr, router), ln, r.logger)
}
