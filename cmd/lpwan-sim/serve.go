package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/lpwan-coverage/internal/logging"
	"github.com/signalsfoundry/lpwan-coverage/internal/observability"
	"github.com/signalsfoundry/lpwan-coverage/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the coverage estimation HTTP API",
	Long:  "serve exposes simulation and placement over HTTP, with Prometheus metrics and optional tracing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.NewFromEnv()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
		if err != nil {
			return err
		}
		defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

		collector, err := observability.NewCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}

		srv := server.New(log, collector)
		log.Info(ctx, "http server starting", logging.String("addr", serveAddr))
		return srv.Start(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address for the HTTP API")
}
