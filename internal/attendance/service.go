package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/logging"
	"github.com/kozaktomas/staff-attendance/internal/metrics"
)

var (
	// ErrStaffNotFound is returned when a manual confirmation names an unknown staff member
	ErrStaffNotFound = errors.New("user not found")
	// ErrFaceNotRecognized is returned when no enrolled face is within the match threshold
	ErrFaceNotRecognized = errors.New("face not recognized")
	// ErrInvalidRequest is returned when neither a staff ID nor a descriptor is given
	ErrInvalidRequest = errors.New("invalid request data")
)

// LogRequest asks to record attendance for either a known staff member (manual
// confirmation) or whoever the descriptor resolves to. StaffID takes precedence.
type LogRequest struct {
	StaffID    string
	Descriptor facematch.Descriptor
	Intent     Intent
}

// Result is the outcome of a Log call.
type Result struct {
	Staff   *database.StaffMember
	Record  *database.AttendanceRecord // today's record after the call, nil if none exists
	Outcome Outcome
	Intent  Intent
	Message string
	Match   *facematch.Match // set when the staff member was identified by face
}

// Service resolves staff members and records their attendance.
type Service struct {
	staff     database.StaffReader
	records   database.AttendanceWriter
	threshold float64
	now       func() time.Time
}

// NewService creates an attendance service. threshold is the maximum face distance
// accepted when identifying a descriptor.
func NewService(staff database.StaffReader, records database.AttendanceWriter, threshold float64) *Service {
	return &Service{
		staff:     staff,
		records:   records,
		threshold: threshold,
		now:       time.Now,
	}
}

// Identify resolves a descriptor against all enrolled staff.
// The returned staff member is nil when the best match is over the threshold;
// the match is returned either way so callers can report the distance.
func (s *Service) Identify(ctx context.Context, descriptor facematch.Descriptor) (*database.StaffMember, facematch.Match, error) {
	candidates, err := s.staff.Candidates(ctx)
	if err != nil {
		return nil, facematch.Match{}, fmt.Errorf("load candidates: %w", err)
	}

	match := facematch.Resolve(descriptor, candidates)
	accepted := match.Accepted(s.threshold)
	metrics.RecordIdentify(accepted, match.Found(), match.Distance)

	logging.Ctx(ctx).Debug().
		Int("candidates", len(candidates)).
		Str("best_id", match.ID).
		Float64("distance", match.Distance).
		Bool("accepted", accepted).
		Msg("resolved descriptor")

	if !accepted {
		return nil, match, nil
	}

	staff, err := s.staff.GetStaff(ctx, match.ID)
	if err != nil {
		return nil, match, fmt.Errorf("get staff: %w", err)
	}
	// Deleted between loading candidates and now
	if staff == nil {
		return nil, match, nil
	}
	return staff, match, nil
}

// Log records a check-in or check-out. Rejections such as a second check-in are
// reported as outcomes, not errors.
func (s *Service) Log(ctx context.Context, req LogRequest) (*Result, error) {
	result := &Result{}

	switch {
	case req.StaffID != "":
		staff, err := s.staff.GetStaff(ctx, req.StaffID)
		if err != nil {
			return nil, fmt.Errorf("get staff: %w", err)
		}
		if staff == nil {
			return nil, ErrStaffNotFound
		}
		result.Staff = staff
	case len(req.Descriptor) > 0:
		staff, match, err := s.Identify(ctx, req.Descriptor)
		if err != nil {
			return nil, err
		}
		if staff == nil {
			return nil, fmt.Errorf("%w: best distance %.3f", ErrFaceNotRecognized, match.Distance)
		}
		result.Staff = staff
		result.Match = &match
	default:
		return nil, ErrInvalidRequest
	}

	now := s.now()
	existing, err := s.records.GetAttendance(ctx, result.Staff.ID, now)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	decision := Decide(result.Staff, existing, req.Intent, now)
	result.Record = existing

	switch decision.Action {
	case ActionCreate:
		created, err := s.records.CreateAttendance(ctx, decision.Record)
		if err != nil {
			return nil, fmt.Errorf("create attendance: %w", err)
		}
		if !created {
			// Another request checked in first
			decision = lostRace(result.Staff, OutcomeAlreadyCheckedIn, decision.Intent, now)
			if result.Record, err = s.records.GetAttendance(ctx, result.Staff.ID, now); err != nil {
				return nil, fmt.Errorf("get attendance: %w", err)
			}
		} else {
			result.Record = decision.Record
		}
	case ActionClose:
		closed, err := s.records.CloseAttendance(ctx, decision.Record.ID, *decision.Record.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("close attendance: %w", err)
		}
		if !closed {
			decision = lostRace(result.Staff, OutcomeAlreadyCheckedOut, decision.Intent, now)
			if result.Record, err = s.records.GetAttendance(ctx, result.Staff.ID, now); err != nil {
				return nil, fmt.Errorf("get attendance: %w", err)
			}
		} else {
			result.Record = decision.Record
		}
	}

	result.Outcome = decision.Outcome
	result.Intent = decision.Intent
	result.Message = decision.Message
	metrics.RecordAttendanceOutcome(string(decision.Outcome))

	logging.Ctx(ctx).Info().
		Str("staff_id", result.Staff.ID).
		Str("intent", string(req.Intent)).
		Str("outcome", string(decision.Outcome)).
		Bool("face_scan", result.Match != nil).
		Msg("attendance logged")

	return result, nil
}

// Day returns all records of the local day containing day.
func (s *Service) Day(ctx context.Context, day time.Time) ([]database.AttendanceRecord, error) {
	records, err := s.records.ListAttendance(ctx, DayStart(day))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

func lostRace(staff *database.StaffMember, outcome Outcome, intent Intent, now time.Time) Decision {
	return Decision{Outcome: outcome, Intent: intent, Message: Message(outcome, staff, now)}
}
