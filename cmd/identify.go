package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/descriptor"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify a face descriptor against enrolled staff",
	Long: `Resolve a face descriptor to the closest enrolled staff member without
logging attendance.

The descriptor is read from a JSON file holding either a plain array or an
object with a "face_descriptor" field. With --image the descriptor is
computed from a photo by the descriptor service instead.

Examples:
  staff-attendance identify --descriptor face.json
  staff-attendance identify --image frame.jpg --threshold 0.45
  cat face.json | staff-attendance identify --descriptor -`,
	Args: cobra.NoArgs,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().String("descriptor", "", "JSON file with the descriptor (- for stdin)")
	identifyCmd.Flags().String("image", "", "Image file to compute the descriptor from")
	identifyCmd.Flags().Float64("threshold", 0, "Match threshold (defaults to MATCH_THRESHOLD)")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentifyResult is the output of identify
type IdentifyResult struct {
	Matched      bool    `json:"matched"`
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name,omitempty"`
	EmployeeCode string  `json:"employee_code,omitempty"`
	Distance     float64 `json:"distance"`
	Score        int     `json:"score"`
	Threshold    float64 `json:"threshold"`
	Candidates   int     `json:"candidates"`
}

// readDescriptorFile parses a descriptor given as [..] or {"face_descriptor": [..]}.
func readDescriptorFile(path string) (facematch.Descriptor, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}

	var d facematch.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		var wrapped struct {
			Descriptor facematch.Descriptor `json:"face_descriptor"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parsing descriptor: %w", err)
		}
		d = wrapped.Descriptor
	}
	if len(d) == 0 {
		return nil, errors.New("descriptor is empty")
	}
	return d, nil
}

// describeImage computes a descriptor for an image using the descriptor service.
func describeImage(ctx context.Context, cfg config.DescriptorConfig, path string) (facematch.Descriptor, error) {
	if cfg.URL == "" {
		return nil, errors.New("DESCRIPTOR_URL environment variable is required for --image")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	client, err := descriptor.Init(ctx, descriptor.Config{
		URL:          cfg.URL,
		Timeout:      cfg.Timeout,
		MaxImageSize: cfg.MaxImageSize,
	})
	if err != nil {
		return nil, err
	}

	obs, err := client.Describe(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("describing image: %w", err)
	}
	if !obs.HasFace() {
		return nil, errors.New("no face detected in image")
	}
	if obs.Issue != descriptor.IssueNone {
		fmt.Fprintf(os.Stderr, "Warning: face quality issue: %s\n", obs.Issue)
	}
	return obs.Descriptor, nil
}

func runIdentify(cmd *cobra.Command, args []string) error {
	descriptorPath := mustGetString(cmd, "descriptor")
	imagePath := mustGetString(cmd, "image")
	threshold := mustGetFloat64(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	if (descriptorPath == "") == (imagePath == "") {
		return errors.New("exactly one of --descriptor or --image is required")
	}

	ctx := context.Background()
	cfg := config.Load()
	if threshold <= 0 {
		threshold = cfg.Matching.MatchThreshold
	}

	var query facematch.Descriptor
	var err error
	if descriptorPath != "" {
		query, err = readDescriptorFile(descriptorPath)
	} else {
		query, err = describeImage(ctx, cfg.Descriptor, imagePath)
	}
	if err != nil {
		return err
	}

	pool, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePool(pool)

	staffStore, err := database.GetStaffReader(ctx)
	if err != nil {
		return err
	}

	candidates, err := staffStore.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	match := facematch.Resolve(query, candidates)
	result := IdentifyResult{
		Matched:    match.Accepted(threshold),
		Distance:   match.Distance,
		Score:      match.Score(),
		Threshold:  threshold,
		Candidates: len(candidates),
	}
	if match.Found() {
		staff, err := staffStore.GetStaff(ctx, match.ID)
		if err != nil {
			return fmt.Errorf("failed to get staff: %w", err)
		}
		if staff != nil {
			result.ID = staff.ID
			result.Name = staff.Name
			result.EmployeeCode = staff.EmployeeCode
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	switch {
	case result.Matched:
		fmt.Printf("Match: %s (%s)\n", result.Name, result.EmployeeCode)
	case result.ID != "":
		fmt.Printf("No match. Nearest: %s (%s)\n", result.Name, result.EmployeeCode)
	default:
		fmt.Println("No match.")
	}
	fmt.Printf("  Distance:   %.4f (threshold %.2f)\n", result.Distance, result.Threshold)
	fmt.Printf("  Score:      %d%%\n", result.Score)
	fmt.Printf("  Candidates: %d\n", result.Candidates)
	return nil
}
