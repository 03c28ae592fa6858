package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect attendance records",
}

var attendanceTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's attendance",
	Long: `Show who checked in and out today, or on the day given by --date.

Examples:
  staff-attendance attendance today
  staff-attendance attendance today --date 2026-03-09 --json`,
	Args: cobra.NoArgs,
	RunE: runAttendanceToday,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceTodayCmd)

	attendanceTodayCmd.Flags().String("date", "", "Day to show as YYYY-MM-DD (defaults to today)")
	attendanceTodayCmd.Flags().Bool("json", false, "Output as JSON")
}

// AttendanceDayResult is the JSON output of attendance today
type AttendanceDayResult struct {
	Date    string          `json:"date"`
	Present int             `json:"present"`
	Open    int             `json:"open"`
	Records []AttendanceRow `json:"records"`
}

// AttendanceRow is one record in attendance today output
type AttendanceRow struct {
	EmployeeCode string     `json:"employee_code"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	CheckIn      time.Time  `json:"check_in"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
	Status       string     `json:"status"`
	Method       string     `json:"method"`
}

func runAttendanceToday(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	jsonOutput := mustGetBool(cmd, "json")

	day := time.Now()
	if date != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
		}
		day = parsed
	}

	ctx := context.Background()
	cfg := config.Load()

	pool, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool(pool)

	staff, err := database.GetStaffReader(ctx)
	if err != nil {
		return err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return err
	}

	svc := attendance.NewService(staff, records, cfg.Matching.MatchThreshold)
	list, err := svc.Day(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	result := AttendanceDayResult{Date: database.DayKey(day), Present: len(list)}
	for i := range list {
		rec := &list[i]
		if !rec.CheckedOut() {
			result.Open++
		}
		result.Records = append(result.Records, AttendanceRow{
			EmployeeCode: rec.EmployeeCode,
			Name:         rec.StaffName,
			Role:         string(rec.StaffRole),
			CheckIn:      rec.CheckIn,
			CheckOut:     rec.CheckOut,
			Status:       string(rec.Status),
			Method:       string(rec.Method),
		})
	}

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Attendance for %s\n\n", result.Date)
	if len(list) == 0 {
		fmt.Println("No records.")
		return nil
	}

	fmt.Printf("%-12s %-30s %-8s %-9s %-9s %s\n", "CODE", "NAME", "ROLE", "CHECK-IN", "CHECK-OUT", "METHOD")
	for _, row := range result.Records {
		checkOut := "-"
		if row.CheckOut != nil {
			checkOut = row.CheckOut.Format(time.TimeOnly)
		}
		fmt.Printf("%-12s %-30s %-8s %-9s %-9s %s\n",
			row.EmployeeCode, row.Name, row.Role,
			row.CheckIn.Format(time.TimeOnly), checkOut, row.Method)
	}
	fmt.Printf("\n%d present, %d still checked in\n", result.Present, result.Open)
	return nil
}
