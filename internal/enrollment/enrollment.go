// Package enrollment registers staff faces and guards against enrolling the same face twice.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/kozaktomas/staff-attendance/internal/metrics"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

// PublicStaff is the part of a staff member that may be shown to whoever is enrolling.
type PublicStaff struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Role         database.Role `json:"role"`
	EmployeeCode string        `json:"employee_code"`
}

// Public returns the public view of a staff member.
func Public(s *database.StaffMember) PublicStaff {
	return PublicStaff{ID: s.ID, Name: s.Name, Role: s.Role, EmployeeCode: s.EmployeeCode}
}

// FaceMatch describes the enrolled identity closest to a set of samples.
type FaceMatch struct {
	Staff       PublicStaff `json:"user"`
	Score       int         `json:"score"`
	Distance    float64     `json:"distance"`
	SupportHits int         `json:"support_hits"`
	Conflict    bool        `json:"conflict"`
}

// EmployeeExistsError is returned by Register when the employee code is taken and
// overwriting was not confirmed.
type EmployeeExistsError struct {
	Existing PublicStaff
}

func (e *EmployeeExistsError) Error() string {
	return fmt.Sprintf("employee code %s is already registered to %s", e.Existing.EmployeeCode, e.Existing.Name)
}

// FaceConflictError is returned when the samples duplicate another staff member's face.
type FaceConflictError struct {
	Match FaceMatch
}

func (e *FaceConflictError) Error() string {
	return fmt.Sprintf("face already registered to %s (%s), score %d%%",
		e.Match.Staff.Name, e.Match.Staff.EmployeeCode, e.Match.Score)
}

// ValidateRequest checks an employee code and/or face samples before registration.
type ValidateRequest struct {
	EmployeeCode string                 `json:"employee_code" validate:"max=64"`
	Descriptors  []facematch.Descriptor `json:"face_descriptors" validate:"omitempty,dive,descriptor"`
	ExcludeID    string                 `json:"exclude_user_id"`
}

// ValidateResult reports what would block a registration.
type ValidateResult struct {
	EmployeeExists bool         `json:"employee_exists"`
	Employee       *PublicStaff `json:"employee"`
	FaceConflict   *FaceMatch   `json:"face_conflict"`
	NearestFace    *FaceMatch   `json:"nearest_face,omitempty"`
}

// RegisterRequest enrolls a new staff member or, with ConfirmOverwrite, replaces the
// one holding EmployeeCode.
type RegisterRequest struct {
	Name             string                 `json:"name" validate:"required,max=200"`
	Role             string                 `json:"role" validate:"staffrole"`
	EmployeeCode     string                 `json:"employee_code" validate:"required,max=64"`
	Samples          []facematch.Descriptor `json:"face_descriptors" validate:"required,min=1,dive,descriptor"`
	ConfirmOverwrite bool                   `json:"confirm_overwrite"`
}

// RegisterResult is the stored staff member and whether it was newly created.
type RegisterResult struct {
	Staff   *database.StaffMember
	Created bool
}

// Service runs enrollment against a staff store.
type Service struct {
	staff    database.StaffWriter
	matching config.MatchingConfig
}

// NewService creates an enrollment service.
func NewService(staff database.StaffWriter, matching config.MatchingConfig) *Service {
	return &Service{staff: staff, matching: matching}
}

// CheckFace runs conflict detection of samples against every enrolled staff member except
// excludeID. It returns nil when nobody could be compared.
func (s *Service) CheckFace(ctx context.Context, samples []facematch.Descriptor, excludeID string) (*FaceMatch, error) {
	candidates, err := s.staff.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	candidates = database.WithoutCandidate(candidates, excludeID)

	policy := s.matching.ConflictPolicy(len(samples))
	result := facematch.DetectConflict(samples, candidates, policy)
	metrics.RecordConflictCheck(result.IsConflict)

	logging.Ctx(ctx).Debug().
		Int("samples", len(samples)).
		Int("candidates", len(candidates)).
		Str("best_id", result.ID).
		Float64("distance", result.Distance).
		Int("support_hits", result.SupportHits).
		Int("min_support_hits", policy.MinSupportHits).
		Bool("conflict", result.IsConflict).
		Msg("face conflict check")

	if !result.Found() {
		return nil, nil
	}

	owner, err := s.staff.GetStaff(ctx, result.ID)
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	if owner == nil {
		return nil, nil
	}

	return &FaceMatch{
		Staff:       Public(owner),
		Score:       result.Score,
		Distance:    result.Distance,
		SupportHits: result.SupportHits,
		Conflict:    result.IsConflict,
	}, nil
}

// Validate reports whether the employee code is taken and whether the samples
// duplicate an enrolled face. Neither condition is an error.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	result := &ValidateResult{}

	if code := database.NormalizeEmployeeCode(req.EmployeeCode); code != "" {
		existing, err := s.staff.GetStaffByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("get staff by code: %w", err)
		}
		if existing != nil {
			public := Public(existing)
			result.EmployeeExists = true
			result.Employee = &public
		}
	}

	if len(req.Descriptors) > 0 {
		match, err := s.CheckFace(ctx, req.Descriptors, req.ExcludeID)
		if err != nil {
			return nil, err
		}
		result.NearestFace = match
		if match != nil && match.Conflict {
			result.FaceConflict = match
		}
	}

	return result, nil
}

// Register enrolls a staff member. The stored face model is the average of the samples
// followed by the samples themselves.
//
// Returns *validation.RequestValidationError for malformed input, *EmployeeExistsError
// when the code is taken without ConfirmOverwrite, and *FaceConflictError when the face
// belongs to someone else. An overwrite never conflicts with the identity it replaces.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	role, _ := database.ParseRole(req.Role)
	code := database.NormalizeEmployeeCode(req.EmployeeCode)

	existing, err := s.staff.GetStaffByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get staff by code: %w", err)
	}
	if existing != nil && !req.ConfirmOverwrite {
		return nil, &EmployeeExistsError{Existing: Public(existing)}
	}

	excludeID := ""
	if existing != nil {
		excludeID = existing.ID
	}
	match, err := s.CheckFace(ctx, req.Samples, excludeID)
	if err != nil {
		return nil, err
	}
	if match != nil && match.Conflict {
		return nil, &FaceConflictError{Match: *match}
	}

	staff := &database.StaffMember{
		Name:         req.Name,
		Role:         role,
		EmployeeCode: code,
		Descriptors:  FaceModel(req.Samples),
	}

	if existing != nil {
		staff.ID = existing.ID
		if err := s.staff.UpdateStaff(ctx, staff); err != nil {
			return nil, fmt.Errorf("update staff: %w", err)
		}
		logging.Ctx(ctx).Info().Str("staff_id", staff.ID).Str("employee_code", code).Msg("staff re-enrolled")
		return &RegisterResult{Staff: staff}, nil
	}

	if err := s.staff.CreateStaff(ctx, staff); err != nil {
		if errors.Is(err, database.ErrDuplicateEmployeeCode) {
			// Registered concurrently under the same code
			if other, getErr := s.staff.GetStaffByCode(ctx, code); getErr == nil && other != nil {
				return nil, &EmployeeExistsError{Existing: Public(other)}
			}
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}

	logging.Ctx(ctx).Info().Str("staff_id", staff.ID).Str("employee_code", code).Msg("staff enrolled")
	return &RegisterResult{Staff: staff, Created: true}, nil
}

// FaceModel builds the stored reference descriptors from enrollment samples:
// their average first, then every sample in capture order.
func FaceModel(samples []facematch.Descriptor) []facematch.Descriptor {
	model := make([]facematch.Descriptor, 0, len(samples)+1)
	model = append(model, facematch.Average(samples))
	for _, s := range samples {
		model = append(model, slices.Clone(s))
	}
	return model
}
