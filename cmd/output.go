package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/postgres"
	"github.com/kozaktomas/staff-attendance/internal/logging"
)

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// openStores connects to PostgreSQL, applies migrations and registers the repositories
// with the database provider. Callers close the returned pool.
func openStores(ctx context.Context, cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	staffRepo := postgres.NewStaffRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	database.RegisterPostgresBackend(
		func() database.StaffWriter { return staffRepo },
		func() database.AttendanceWriter { return attendanceRepo },
	)
	return pool, nil
}

// closePool releases the connection pool opened by openStores.
func closePool(pool *postgres.Pool) {
	if err := pool.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close database pool")
	}
}
