package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/descriptor"
	"github.com/kozaktomas/staff-attendance/internal/logging"
)

// FaceDescriber turns a camera frame into at most one face descriptor.
type FaceDescriber interface {
	Describe(ctx context.Context, image []byte) (*descriptor.Observation, error)
}

// KioskHandler handles identification and attendance endpoints used by the kiosk
type KioskHandler struct {
	attendance *attendance.Service
	faces      FaceDescriber // nil when the descriptor service is not configured
}

// NewKioskHandler creates a new kiosk handler
func NewKioskHandler(svc *attendance.Service, faces FaceDescriber) *KioskHandler {
	return &KioskHandler{attendance: svc, faces: faces}
}

// ScanResponse is returned by Scan
type ScanResponse struct {
	AttendanceResponse
	DetScore float64   `json:"det_score"`
	BBox     []float64 `json:"bbox"`
}

// Scan accepts a multipart camera frame ("image" field, optional "type" field),
// computes its descriptor and logs attendance for whoever it shows.
func (h *KioskHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		respondError(w, http.StatusServiceUnavailable, "face descriptor service not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	intent, ok := attendance.ParseIntent(r.FormValue("type"))
	if !ok {
		respondError(w, http.StatusBadRequest, "type must be Check-in or Check-out")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	start := time.Now()
	obs, err := h.faces.Describe(r.Context(), data)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Dur("duration", time.Since(start)).Msg("describe frame failed")
		respondError(w, http.StatusBadGateway, "failed to compute face descriptor")
		return
	}

	if obs.Issue != descriptor.IssueNone {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       issueMessage(obs.Issue),
			"issue":       obs.Issue,
			"faces_count": obs.FacesCount,
			"bbox":        obs.BBox,
		})
		return
	}

	res, err := h.attendance.Log(r.Context(), attendance.LogRequest{Descriptor: obs.Descriptor, Intent: intent})
	if err != nil {
		h.respondLogError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ScanResponse{
		AttendanceResponse: attendanceResponse(res),
		DetScore:           obs.DetScore,
		BBox:               obs.BBox,
	})
}

func issueMessage(issue descriptor.Issue) string {
	switch issue {
	case descriptor.IssueNoFace:
		return "No face detected"
	case descriptor.IssueOutsideFrame:
		return "Position your face inside the frame"
	case descriptor.IssueTooSmall:
		return "Move closer to the camera"
	case descriptor.IssueTooLarge:
		return "Move further from the camera"
	}
	return "Face not usable"
}

// respondLogError maps attendance errors to HTTP responses
func (h *KioskHandler) respondLogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "Invalid request data")
	case errors.Is(err, attendance.ErrStaffNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, attendance.ErrFaceNotRecognized):
		respondError(w, http.StatusNotFound, "Face not recognized")
	default:
		respondInternalError(w, r, "failed to log attendance", err)
	}
}
