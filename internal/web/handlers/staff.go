package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/enrollment"
)

// StaffHandler handles staff administration endpoints
type StaffHandler struct {
	staff      database.StaffReader
	enrollment *enrollment.Service
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(staff database.StaffReader, svc *enrollment.Service) *StaffHandler {
	return &StaffHandler{staff: staff, enrollment: svc}
}

// List returns staff matching ?q=, newest first, at most ?limit= (clamped to 1..200, default 50)
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultStaffListLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = max(1, min(n, constants.MaxStaffListLimit))
	}

	staff, err := h.staff.ListStaff(r.Context(), database.StaffFilter{
		Query: r.URL.Query().Get("q"),
		Limit: limit,
	})
	if err != nil {
		respondInternalError(w, r, "failed to list staff", err)
		return
	}

	response := make([]StaffResponse, len(staff))
	for i := range staff {
		response[i] = staffToResponse(&staff[i])
	}
	respondJSON(w, http.StatusOK, response)
}

// Create enrolls a new staff member. Unlike Register it never overwrites.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req enrollment.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ConfirmOverwrite = false

	res, err := h.enrollment.Register(r.Context(), req)
	if err != nil {
		respondEnrollmentError(w, r, err, "failed to create staff")
		return
	}
	respondJSON(w, http.StatusCreated, staffToResponse(res.Staff))
}

// Get returns one staff member
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	staff, err := h.staff.GetStaff(r.Context(), id)
	if err != nil {
		respondInternalError(w, r, "failed to get staff", err)
		return
	}
	if staff == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, staffToResponse(staff))
}

// Update edits name, role and employee code, and replaces the face model when
// face_descriptors is given
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req enrollment.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	staff, err := h.enrollment.Update(r.Context(), id, req)
	if err != nil {
		respondEnrollmentError(w, r, err, "failed to update staff")
		return
	}
	respondJSON(w, http.StatusOK, staffToResponse(staff))
}

// DeleteStaffRequest confirms a deletion by repeating the employee code
type DeleteStaffRequest struct {
	ConfirmEmployeeCode string `json:"confirm_employee_code"`
}

// Delete removes a staff member and their attendance history
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DeleteStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.enrollment.Delete(r.Context(), id, req.ConfirmEmployeeCode); err != nil {
		respondEnrollmentError(w, r, err, "failed to delete staff")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
