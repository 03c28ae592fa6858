package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mariadb"
	"github.com/kozaktomas/staff-attendance/internal/enrollment"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/validation"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var staffImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import face enrollments from the legacy MySQL database",
	Long: `Import staff face enrollments from the legacy attendance database.

Legacy face rows are grouped per placement. Each placement becomes one staff
member with employee code <prefix><placement id>. Every import goes through the
normal registration path, so faces already enrolled under another code are
reported as conflicts and skipped.

Requires LEGACY_MYSQL_DSN (or --mysql-dsn) and DATABASE_URL.

Examples:
  # Preview what would be imported
  staff-attendance staff import --dry-run

  # Import, replacing staff that were imported before
  staff-attendance staff import --overwrite`,
	Args: cobra.NoArgs,
	RunE: runStaffImport,
}

func init() {
	staffCmd.AddCommand(staffImportCmd)

	staffImportCmd.Flags().String("mysql-dsn", "", "Legacy database DSN (overrides LEGACY_MYSQL_DSN)")
	staffImportCmd.Flags().String("code-prefix", "PN", "Employee code prefix for imported placements")
	staffImportCmd.Flags().String("role", string(database.DefaultRole), "Role assigned to imported staff")
	staffImportCmd.Flags().Bool("overwrite", false, "Replace staff whose employee code already exists")
	staffImportCmd.Flags().Bool("dry-run", false, "Read and group legacy faces without writing")
	staffImportCmd.Flags().Bool("json", false, "Output as JSON")
}

// ImportResult represents the result of a legacy import
type ImportResult struct {
	Success       bool     `json:"success"`
	LegacyRows    int      `json:"legacy_rows"`
	SkippedRows   []int64  `json:"skipped_rows,omitempty"`
	People        int      `json:"people"`
	Created       int      `json:"created"`
	Updated       int      `json:"updated"`
	Existing      int      `json:"existing"`
	Conflicts     int      `json:"conflicts"`
	Errors        int      `json:"errors"`
	ErrorMessages []string `json:"error_messages,omitempty"`
	DryRun        bool     `json:"dry_run"`
	DurationMs    int64    `json:"duration_ms"`
}

func legacyRequest(person mariadb.LegacyPerson, prefix, role string, overwrite bool) enrollment.RegisterRequest {
	name := person.Name
	if name == "" {
		name = fmt.Sprintf("Placement %d", person.PlacementID)
	}
	samples := make([]facematch.Descriptor, len(person.Embeddings))
	for i, e := range person.Embeddings {
		samples[i] = facematch.Descriptor(e)
	}
	return enrollment.RegisterRequest{
		Name:             name,
		Role:             role,
		EmployeeCode:     fmt.Sprintf("%s%d", prefix, person.PlacementID),
		Samples:          samples,
		ConfirmOverwrite: overwrite,
	}
}

func runStaffImport(cmd *cobra.Command, args []string) error {
	dsn := mustGetString(cmd, "mysql-dsn")
	prefix := mustGetString(cmd, "code-prefix")
	role := mustGetString(cmd, "role")
	overwrite := mustGetBool(cmd, "overwrite")
	dryRun := mustGetBool(cmd, "dry-run")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	if dsn == "" {
		dsn = cfg.Legacy.MySQLDSN
	}
	if dsn == "" {
		return errors.New("LEGACY_MYSQL_DSN environment variable or --mysql-dsn is required")
	}
	if _, ok := database.ParseRole(role); !ok {
		return fmt.Errorf("unknown role %q", role)
	}

	if !jsonOutput {
		fmt.Println("Connecting to legacy MySQL database...")
	}
	legacy, err := mariadb.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer legacy.Close()

	total, err := legacy.CountLegacyFaces(ctx)
	if err != nil {
		return err
	}
	faces, skipped, err := legacy.LegacyFaces(ctx)
	if err != nil {
		return err
	}
	people := mariadb.GroupByPerson(faces)

	result := ImportResult{
		LegacyRows:  total,
		SkippedRows: skipped,
		People:      len(people),
		DryRun:      dryRun,
	}

	if !jsonOutput {
		fmt.Printf("Found %d legacy face rows for %d placements", total, len(people))
		if len(skipped) > 0 {
			fmt.Printf(" (%d rows with unreadable embeddings skipped)", len(skipped))
		}
		fmt.Println()
	}

	if dryRun {
		result.Success = true
		result.DurationMs = time.Since(startTime).Milliseconds()
		if jsonOutput {
			return outputJSON(result)
		}
		for _, p := range people {
			req := legacyRequest(p, prefix, role, overwrite)
			fmt.Printf("  %-12s %-30s %d samples\n", req.EmployeeCode, req.Name, len(req.Samples))
		}
		fmt.Println("DRY RUN - nothing was written")
		return nil
	}

	pool, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool(pool)

	staffStore, err := database.GetStaffWriter(ctx)
	if err != nil {
		return err
	}
	svc := enrollment.NewService(staffStore, cfg.Matching)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(people),
			progressbar.OptionSetDescription("Importing staff"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	for _, p := range people {
		req := legacyRequest(p, prefix, role, overwrite)
		res, err := svc.Register(ctx, req)

		var existsErr *enrollment.EmployeeExistsError
		var conflictErr *enrollment.FaceConflictError
		var validationErr *validation.RequestValidationError
		switch {
		case err == nil && res.Created:
			result.Created++
		case err == nil:
			result.Updated++
		case errors.As(err, &existsErr):
			result.Existing++
		case errors.As(err, &conflictErr):
			result.Conflicts++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("%s: %v", req.EmployeeCode, err))
		case errors.As(err, &validationErr):
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("%s: %v", req.EmployeeCode, err))
		default:
			return fmt.Errorf("importing %s: %w", req.EmployeeCode, err)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	result.Success = true
	result.DurationMs = time.Since(startTime).Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("\n\nImport complete in %s\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("  Created:   %d\n", result.Created)
	fmt.Printf("  Updated:   %d\n", result.Updated)
	fmt.Printf("  Existing:  %d (use --overwrite to replace)\n", result.Existing)
	fmt.Printf("  Conflicts: %d\n", result.Conflicts)
	fmt.Printf("  Invalid:   %d\n", result.Errors)
	for _, msg := range result.ErrorMessages {
		fmt.Printf("    %s\n", msg)
	}
	return nil
}
