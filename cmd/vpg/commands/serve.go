package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/api"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/metrics"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the timeline paging API over the local library",
	Long: `Serve the timeline paging API, asset save endpoints and Prometheus
metrics. Saving an asset queues a search index update.

Examples:
  vpg serve
  vpg serve --address :8080
  VPG_SERVER_ADDRESS=:9000 vpg serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default from server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(registry, metrics.NewCollector(nil, a.runner))

	address := cfg.Server.Address
	if serveAddress != "" {
		address = serveAddress
	}
	server := api.NewServer(address, api.Deps{
		Library:  a.library,
		Gatherer: registry,
		OnSave: func(ctx context.Context, id string) error {
			_, err := a.dispatcher.AssetSaved(ctx, id)
			return err
		},
		Logger:         logger,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	})
	return server.Start(ctx)
}
