// Package attendance applies the once-per-day check-in/check-out rules to resolved staff members.
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

// Intent is the action requested by the kiosk. The zero value asks for auto-toggle.
type Intent string

const (
	IntentAuto     Intent = ""
	IntentCheckIn  Intent = "Check-in"
	IntentCheckOut Intent = "Check-out"
)

// ParseIntent accepts "Check-in", "check_in", "checkin" and the like. Empty means auto-toggle.
func ParseIntent(s string) (Intent, bool) {
	normalized := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "":
		return IntentAuto, true
	case "checkin":
		return IntentCheckIn, true
	case "checkout":
		return IntentCheckOut, true
	}
	return "", false
}

// State is the attendance state of a staff member for one day.
type State int

const (
	StateNoRecord State = iota
	StateCheckedIn
	StateCheckedOut
)

func (s State) String() string {
	switch s {
	case StateCheckedIn:
		return "checked-in"
	case StateCheckedOut:
		return "checked-out"
	default:
		return "no-record"
	}
}

// StateOf derives the state from today's record, which may be nil.
func StateOf(rec *database.AttendanceRecord) State {
	switch {
	case rec == nil:
		return StateNoRecord
	case rec.CheckedOut():
		return StateCheckedOut
	default:
		return StateCheckedIn
	}
}

// Outcome is the result kind reported back to the kiosk.
type Outcome string

const (
	OutcomeWelcome           Outcome = "welcome"
	OutcomeGoodbye           Outcome = "goodbye"
	OutcomeNotCheckedIn      Outcome = "not-checked-in"
	OutcomeAlreadyCheckedIn  Outcome = "already-checked-in"
	OutcomeAlreadyCheckedOut Outcome = "already-checked-out"
)

// Changed reports whether the outcome came with a state change.
func (o Outcome) Changed() bool {
	return o == OutcomeWelcome || o == OutcomeGoodbye
}

// Action is the write a decision requires.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionClose
)

// Decision is the result of applying an intent to the current state.
// Record is the new or updated record for ActionCreate and ActionClose, nil otherwise.
type Decision struct {
	Action  Action
	Outcome Outcome
	Intent  Intent // effective intent after auto-toggle inference
	Record  *database.AttendanceRecord
	Message string
}

// Decide applies intent to the staff member's record for today. It performs no I/O:
// the caller persists Record according to Action.
//
// The existing record is never modified in place; a close returns a copy with CheckOut set.
// A record checked in outside the local day of now counts as no record.
func Decide(staff *database.StaffMember, existing *database.AttendanceRecord, intent Intent, now time.Time) Decision {
	if existing != nil {
		if start, end := DayBounds(now); existing.CheckIn.Before(start) || existing.CheckIn.After(end) {
			existing = nil
		}
	}
	state := StateOf(existing)

	effective := intent
	if effective == IntentAuto {
		switch state {
		case StateNoRecord:
			effective = IntentCheckIn
		case StateCheckedIn:
			effective = IntentCheckOut
		}
	}

	if state == StateCheckedOut {
		return Decision{Outcome: OutcomeAlreadyCheckedOut, Intent: effective, Message: Message(OutcomeAlreadyCheckedOut, staff, now)}
	}

	switch effective {
	case IntentCheckIn:
		if state == StateCheckedIn {
			return Decision{Outcome: OutcomeAlreadyCheckedIn, Intent: effective, Message: Message(OutcomeAlreadyCheckedIn, staff, now)}
		}
		method := database.MethodManual
		if intent == IntentAuto {
			method = database.MethodFaceScan
		}
		rec := &database.AttendanceRecord{
			StaffID: staff.ID,
			Day:     DayStart(now),
			CheckIn: now,
			Status:  database.StatusPresent,
			Method:  method,
		}
		return Decision{Action: ActionCreate, Outcome: OutcomeWelcome, Intent: effective, Record: rec, Message: Message(OutcomeWelcome, staff, now)}

	default:
		if state == StateNoRecord {
			return Decision{Outcome: OutcomeNotCheckedIn, Intent: effective, Message: Message(OutcomeNotCheckedIn, staff, now)}
		}
		rec := *existing
		checkOut := now
		rec.CheckOut = &checkOut
		return Decision{Action: ActionClose, Outcome: OutcomeGoodbye, Intent: effective, Record: &rec, Message: Message(OutcomeGoodbye, staff, now)}
	}
}

// Message renders the user-facing text for an outcome. at is the event time for welcome and goodbye.
func Message(outcome Outcome, staff *database.StaffMember, at time.Time) string {
	switch outcome {
	case OutcomeWelcome:
		return fmt.Sprintf("Welcome, %s %s. Checked in at %s", staff.Role, staff.Name, at.Format(time.TimeOnly))
	case OutcomeGoodbye:
		return fmt.Sprintf("Goodbye, %s. Checked out at %s", staff.Name, at.Format(time.TimeOnly))
	case OutcomeNotCheckedIn:
		return "You haven't checked in yet today."
	case OutcomeAlreadyCheckedIn:
		return "You have already checked in today."
	case OutcomeAlreadyCheckedOut:
		return "You have already checked out today."
	}
	return ""
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// DayBounds returns the first and last millisecond of the local calendar day containing t.
func DayBounds(t time.Time) (start, end time.Time) {
	start = DayStart(t)
	end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, int(999*time.Millisecond), time.Local)
	return start, end
}
