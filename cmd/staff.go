package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage enrolled staff",
}

var staffListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled staff",
	Long: `List enrolled staff, newest first.

Examples:
  # All staff
  staff-attendance staff list

  # Nurses only, as JSON
  staff-attendance staff list --q nurse --json`,
	Args: cobra.NoArgs,
	RunE: runStaffList,
}

func init() {
	rootCmd.AddCommand(staffCmd)
	staffCmd.AddCommand(staffListCmd)

	staffListCmd.Flags().String("q", "", "Filter by name, role or employee code")
	staffListCmd.Flags().Int("limit", constants.DefaultStaffListLimit, "Maximum number of results")
	staffListCmd.Flags().Bool("json", false, "Output as JSON")
}

// StaffListEntry represents one staff member in list output
type StaffListEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	EmployeeCode string `json:"employee_code"`
	Descriptors  int    `json:"descriptors"`
	CreatedAt    string `json:"created_at"`
}

func runStaffList(cmd *cobra.Command, args []string) error {
	query := mustGetString(cmd, "q")
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	pool, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool(pool)

	staffStore, err := database.GetStaffReader(ctx)
	if err != nil {
		return err
	}

	staff, err := staffStore.ListStaff(ctx, database.StaffFilter{Query: query, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list staff: %w", err)
	}

	entries := make([]StaffListEntry, len(staff))
	for i := range staff {
		entries[i] = StaffListEntry{
			ID:           staff[i].ID,
			Name:         staff[i].Name,
			Role:         string(staff[i].Role),
			EmployeeCode: staff[i].EmployeeCode,
			Descriptors:  len(staff[i].Descriptors),
			CreatedAt:    staff[i].CreatedAt.Format(time.RFC3339),
		}
	}

	if jsonOutput {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No staff found.")
		return nil
	}

	fmt.Printf("%-12s %-30s %-8s %-11s %s\n", "CODE", "NAME", "ROLE", "DESCRIPTORS", "ID")
	for _, e := range entries {
		fmt.Printf("%-12s %-30s %-8s %-11d %s\n", e.EmployeeCode, e.Name, e.Role, e.Descriptors, e.ID)
	}
	fmt.Printf("\n%d staff member(s)\n", len(entries))
	return nil
}
