package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/descriptor"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/kozaktomas/staff-attendance/internal/web"
	"github.com/kozaktomas/staff-attendance/internal/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Staff Attendance API server.
The server exposes kiosk endpoints (identify, attendance log, frame scan),
enrollment and staff administration endpoints, and Prometheus metrics.

Frame scanning requires DESCRIPTOR_URL to point at the face descriptor service.
Without it the kiosk must compute descriptors on the client.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// initDescriber connects to the descriptor service. It returns nil when the
// service is not configured or not reachable, which disables frame scanning.
func initDescriber(ctx context.Context, cfg config.DescriptorConfig) handlers.FaceDescriber {
	if cfg.URL == "" {
		logging.Info().Msg("DESCRIPTOR_URL not set, kiosk frame scanning disabled")
		return nil
	}

	client, err := descriptor.Init(ctx, descriptor.Config{
		URL:          cfg.URL,
		Timeout:      cfg.Timeout,
		MaxImageSize: cfg.MaxImageSize,
	})
	if err != nil {
		logging.Warn().Err(err).Str("url", cfg.URL).Msg("descriptor service unavailable, kiosk frame scanning disabled")
		return nil
	}

	logging.Info().Str("url", cfg.URL).Msg("descriptor service connected")
	return client
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info().Msg("connecting to PostgreSQL database")
	pool, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool(pool)

	staff, err := database.GetStaffWriter(ctx)
	if err != nil {
		return err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, web.Dependencies{
		Staff:      staff,
		Attendance: records,
		Faces:      initDescriber(ctx, cfg.Descriptor),
		Database:   pool,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logging.Info().Msg("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("error during shutdown")
		}
	}()

	logging.Info().
		Float64("match_threshold", cfg.Matching.MatchThreshold).
		Float64("conflict_strict_threshold", cfg.Matching.Conflict.StrictThreshold).
		Float64("conflict_support_threshold", cfg.Matching.Conflict.SupportThreshold).
		Msg("matching policy")

	if err := server.Start(); err != nil {
		return err
	}
	return nil
}
