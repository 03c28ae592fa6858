package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

// ErrDeleteConfirmation is returned by Delete when the confirmation code does not match.
var ErrDeleteConfirmation = errors.New("employee code confirmation does not match")

// UpdateRequest edits an enrolled staff member. Descriptors, when given, are samples
// that replace the face model wholesale. Empty name, role or code keep the stored value.
type UpdateRequest struct {
	Name         string                 `json:"name" validate:"max=200"`
	Role         string                 `json:"role" validate:"staffrole"`
	EmployeeCode string                 `json:"employee_code" validate:"max=64"`
	Descriptors  []facematch.Descriptor `json:"face_descriptors" validate:"omitempty,dive,descriptor"`
}

// Update applies req to the staff member with the given ID.
// Returns database.ErrNotFound if there is no such staff member.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*database.StaffMember, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	existing, err := s.staff.GetStaff(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	if existing == nil {
		return nil, database.ErrNotFound
	}

	if len(req.Descriptors) > 0 {
		match, err := s.CheckFace(ctx, req.Descriptors, id)
		if err != nil {
			return nil, err
		}
		if match != nil && match.Conflict {
			return nil, &FaceConflictError{Match: *match}
		}
	}

	staff := &database.StaffMember{
		ID:           id,
		Name:         existing.Name,
		Role:         existing.Role,
		EmployeeCode: existing.EmployeeCode,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		staff.Name = name
	}
	if strings.TrimSpace(req.Role) != "" {
		staff.Role, _ = database.ParseRole(req.Role)
	}
	if code := strings.TrimSpace(req.EmployeeCode); code != "" {
		staff.EmployeeCode = code
	}
	if len(req.Descriptors) > 0 {
		staff.Descriptors = FaceModel(req.Descriptors)
	}

	if err := s.staff.UpdateStaff(ctx, staff); err != nil {
		if errors.Is(err, database.ErrDuplicateEmployeeCode) {
			if other, getErr := s.staff.GetStaffByCode(ctx, staff.EmployeeCode); getErr == nil && other != nil {
				return nil, &EmployeeExistsError{Existing: Public(other)}
			}
		}
		return nil, fmt.Errorf("update staff: %w", err)
	}
	if len(staff.Descriptors) == 0 {
		staff.Descriptors = existing.Descriptors
	}

	logging.Ctx(ctx).Info().
		Str("staff_id", id).
		Bool("descriptors_replaced", len(req.Descriptors) > 0).
		Msg("staff updated")
	return staff, nil
}

// Delete removes a staff member and their attendance history. confirmCode must match the
// staff member's employee code (case-insensitive).
// Returns database.ErrNotFound if there is no such staff member.
func (s *Service) Delete(ctx context.Context, id, confirmCode string) error {
	existing, err := s.staff.GetStaff(ctx, id)
	if err != nil {
		return fmt.Errorf("get staff: %w", err)
	}
	if existing == nil {
		return database.ErrNotFound
	}
	if database.NormalizeEmployeeCode(confirmCode) != existing.EmployeeCode {
		return ErrDeleteConfirmation
	}

	deleted, err := s.staff.DeleteStaff(ctx, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	if !deleted {
		return database.ErrNotFound
	}

	logging.Ctx(ctx).Info().Str("staff_id", id).Str("employee_code", existing.EmployeeCode).Msg("staff deleted")
	return nil
}
