package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

// LogAttendanceRequest logs attendance for a staff ID (manual confirmation) or a face descriptor
type LogAttendanceRequest struct {
	Descriptor facematch.Descriptor `json:"face_descriptor" validate:"omitempty,descriptor"`
	StaffID    string               `json:"staff_id"`
	Type       string               `json:"type"`
}

// AttendanceResponse is the outcome of a log request
type AttendanceResponse struct {
	Message string                  `json:"message"`
	Outcome attendance.Outcome      `json:"outcome"`
	Type    attendance.Intent       `json:"type,omitempty"`
	User    string                  `json:"user"`
	StaffID string                  `json:"staff_id"`
	Score   *int                    `json:"score,omitempty"`
	Record  *AttendanceRecordResult `json:"record,omitempty"`
}

// AttendanceRecordResult is an attendance record in API responses
type AttendanceRecordResult struct {
	ID           string     `json:"id"`
	StaffID      string     `json:"staff_id"`
	StaffName    string     `json:"staff_name,omitempty"`
	StaffRole    string     `json:"staff_role,omitempty"`
	EmployeeCode string     `json:"employee_code,omitempty"`
	Date         string     `json:"date"`
	CheckIn      time.Time  `json:"check_in"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
	Status       string     `json:"status"`
	Method       string     `json:"method"`
}

func recordToResult(rec *database.AttendanceRecord) *AttendanceRecordResult {
	return &AttendanceRecordResult{
		ID:           rec.ID,
		StaffID:      rec.StaffID,
		StaffName:    rec.StaffName,
		StaffRole:    string(rec.StaffRole),
		EmployeeCode: rec.EmployeeCode,
		Date:         database.DayKey(rec.Day),
		CheckIn:      rec.CheckIn,
		CheckOut:     rec.CheckOut,
		Status:       string(rec.Status),
		Method:       string(rec.Method),
	}
}

func attendanceResponse(res *attendance.Result) AttendanceResponse {
	resp := AttendanceResponse{
		Message: res.Message,
		Outcome: res.Outcome,
		User:    res.Staff.Name,
		StaffID: res.Staff.ID,
	}
	if res.Outcome.Changed() {
		resp.Type = res.Intent
	}
	if res.Match != nil {
		score := res.Match.Score()
		resp.Score = &score
	}
	if res.Record != nil {
		resp.Record = recordToResult(res.Record)
	}
	return resp
}

// LogAttendance records a check-in or check-out.
// Rejections that change nothing ("already checked in") are 200s, except checking out
// without a check-in which is a 400.
func (h *KioskHandler) LogAttendance(w http.ResponseWriter, r *http.Request) {
	var req LogAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	intent, ok := attendance.ParseIntent(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "type must be Check-in or Check-out")
		return
	}

	res, err := h.attendance.Log(r.Context(), attendance.LogRequest{
		StaffID:    req.StaffID,
		Descriptor: req.Descriptor,
		Intent:     intent,
	})
	if err != nil {
		h.respondLogError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == attendance.OutcomeNotCheckedIn {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, attendanceResponse(res))
}

// ListAttendance returns the records of the day given by ?date=YYYY-MM-DD, today by default.
func (h *KioskHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	records, err := h.attendance.Day(r.Context(), day)
	if err != nil {
		respondInternalError(w, r, "failed to list attendance", err)
		return
	}

	results := make([]*AttendanceRecordResult, len(records))
	for i := range records {
		results[i] = recordToResult(&records[i])
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    database.DayKey(day),
		"records": results,
		"count":   len(results),
	})
}
