package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/talent-compass/internal/server"
	"github.com/jonathan/talent-compass/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes profile evolution, agent decisions, live sessions and report generation.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{inference: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("port") {
		a.cfg.Port = servePort
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	rateCfg, err := ratelimit.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load rate limit config: %w", err)
	}

	srv := server.New(a.svc, server.Config{
		Addr:        a.cfg.Addr(),
		RateLimit:   rateCfg,
		HealthCheck: a.db.Ping,
	}, a.logger)
	return srv.Start(ctx)
}
