package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sleep-futures/internal/dashboard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API, WebSocket feed and metrics",
	Long: `Runs the pipeline, then serves the latest snapshot over HTTP:
  /api/daily /api/predictions /api/strategy /api/summary
  /ws (snapshot push on every refresh) /healthz /metrics

Examples:
  sleepfutures serve --addr :8080
  sleepfutures serve --refresh 10m --allowed-origin http://localhost:3000`,
	RunE: runServeCommand,
}

var (
	serveAddr           string
	serveRefresh        time.Duration
	serveAllowedOrigins []string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().DurationVar(&serveRefresh, "refresh", 5*time.Minute, "Snapshot refresh interval (0 disables)")
	serveCmd.Flags().StringSliceVar(&serveAllowedOrigins, "allowed-origin", nil, "WebSocket origins to accept (default any)")
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := newOrchestrator(cfg, st, nil, &logger, false)
	srv := dashboard.New(dashboard.Options{
		Loader:          dashboard.NewPipelineLoader(orch, nil),
		RefreshInterval: serveRefresh,
		Logger:          &logger,
		AllowedOrigins:  serveAllowedOrigins,
	})
	return srv.Run(ctx, serveAddr)
}
