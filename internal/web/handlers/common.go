// Package handlers provides HTTP handlers for the web API.
// Handlers are organized by area:
//   - kiosk.go: Kiosk frame scanning (Scan)
//   - identify.go: Descriptor identification (Identify)
//   - attendance.go: Attendance logging and daily listing (LogAttendance, ListAttendance)
//   - enrollment.go: Registration pre-checks and registration (Validate, Register)
//   - staff.go: Staff administration (List, Create, Get, Update, Delete)
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// Error codes returned alongside 4xx errors that a client is expected to act on.
const (
	codeEmployeeExists        = "EMPLOYEE_EXISTS"
	codeFaceAlreadyRegistered = "FACE_ALREADY_REGISTERED"
	codeDeleteConfirmation    = "DELETE_CONFIRMATION_FAILED"
	codeValidationFailed      = "VALIDATION_FAILED"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ErrorResponse is an error body carrying a machine-readable code and optional details.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// respondErrorCode sends an error response with a code clients can branch on.
func respondErrorCode(w http.ResponseWriter, status int, code, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// decodeJSON decodes a size-limited JSON request body into v.
// On failure it writes a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// respondValidationError writes a 400 with per-field messages if err is a validation error.
func respondValidationError(w http.ResponseWriter, err error) bool {
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		return false
	}
	fields := make(map[string]string, len(verr.Errors()))
	for _, fe := range verr.Errors() {
		fields[fe.Field()] = fe.Error()
	}
	respondErrorCode(w, http.StatusBadRequest, codeValidationFailed, verr.Error(), fields)
	return true
}

// respondInternalError logs err and sends a generic 500.
func respondInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeForLog(r.URL.Path)).Msg(message)
	respondError(w, http.StatusInternalServerError, message)
}
