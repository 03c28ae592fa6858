package handlers

import (
	"net/http"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

// IdentifyRequest represents an identify request
type IdentifyRequest struct {
	Descriptor facematch.Descriptor `json:"face_descriptor" validate:"required,descriptor"`
}

// IdentifyResponse represents the identified staff member
type IdentifyResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	EmployeeCode string  `json:"employee_code"`
	Score        int     `json:"score"`
	Distance     float64 `json:"distance"`
}

// Identify resolves a face descriptor to an enrolled staff member without logging attendance.
func (h *KioskHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	staff, match, err := h.attendance.Identify(r.Context(), req.Descriptor)
	if err != nil {
		respondInternalError(w, r, "failed to identify face", err)
		return
	}
	if staff == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, IdentifyResponse{
		ID:           staff.ID,
		Name:         staff.Name,
		Role:         string(staff.Role),
		EmployeeCode: staff.EmployeeCode,
		Score:        match.Score(),
		Distance:     match.Distance,
	})
}
