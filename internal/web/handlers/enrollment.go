package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/enrollment"
)

// EnrollmentHandler handles registration endpoints
type EnrollmentHandler struct {
	enrollment *enrollment.Service
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(svc *enrollment.Service) *EnrollmentHandler {
	return &EnrollmentHandler{enrollment: svc}
}

// StaffResponse represents a staff member in API responses
type StaffResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	EmployeeCode     string `json:"employee_code"`
	DescriptorsCount int    `json:"descriptors_count"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func staffToResponse(s *database.StaffMember) StaffResponse {
	resp := StaffResponse{
		ID:               s.ID,
		Name:             s.Name,
		Role:             string(s.Role),
		EmployeeCode:     s.EmployeeCode,
		DescriptorsCount: len(s.Descriptors),
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// Validate checks an employee code and face samples before registration
func (h *EnrollmentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req enrollment.ValidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.enrollment.Validate(r.Context(), req)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		respondInternalError(w, r, "failed to validate enrollment", err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Register enrolls a staff member, or replaces one when confirm_overwrite is set
func (h *EnrollmentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req enrollment.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.enrollment.Register(r.Context(), req)
	if err != nil {
		respondEnrollmentError(w, r, err, "failed to register staff")
		return
	}

	status := http.StatusOK
	message := "User updated successfully"
	if res.Created {
		status = http.StatusCreated
		message = "User registered successfully"
	}
	respondJSON(w, status, map[string]any{
		"message": message,
		"user":    staffToResponse(res.Staff),
	})
}

// respondEnrollmentError maps enrollment errors to HTTP responses.
func respondEnrollmentError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	var existsErr *enrollment.EmployeeExistsError
	var conflictErr *enrollment.FaceConflictError

	switch {
	case respondValidationError(w, err):
	case errors.As(err, &existsErr):
		respondErrorCode(w, http.StatusConflict, codeEmployeeExists,
			"Employee code is already registered", existsErr.Existing)
	case errors.As(err, &conflictErr):
		respondErrorCode(w, http.StatusConflict, codeFaceAlreadyRegistered,
			"This face is already registered to another staff member", conflictErr.Match)
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, enrollment.ErrDeleteConfirmation):
		respondErrorCode(w, http.StatusBadRequest, codeDeleteConfirmation,
			"Employee code confirmation does not match", nil)
	default:
		respondInternalError(w, r, internalMessage, err)
	}
}
