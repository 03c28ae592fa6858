package database

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// Role is the job title of a staff member
type Role string

const (
	RoleSurgeon Role = "Surgeon"
	RoleDoctor  Role = "Doctor"
	RoleNurse   Role = "Nurse"
	RoleAdmin   Role = "Admin"

	DefaultRole = RoleDoctor
)

// Roles lists all valid roles in display order
var Roles = []Role{RoleSurgeon, RoleDoctor, RoleNurse, RoleAdmin}

// ParseRole matches s case-insensitively against the known roles.
// An empty string yields DefaultRole.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRole, true
	}
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// AttendanceStatus is the status of a day's attendance record
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusLate    AttendanceStatus = "Late"
	StatusAbsent  AttendanceStatus = "Absent"
)

// AttendanceMethod records how an attendance event was captured
type AttendanceMethod string

const (
	MethodFaceScan AttendanceMethod = "FaceScan"
	MethodManual   AttendanceMethod = "Manual"
	MethodAdmin    AttendanceMethod = "Admin"
)

// Storage errors shared by all backends
var (
	// ErrDuplicateEmployeeCode is returned when a write would violate employee code uniqueness
	ErrDuplicateEmployeeCode = errors.New("employee code already registered")
	// ErrNotFound is returned by updates addressing a row that does not exist
	ErrNotFound = errors.New("not found")
)

// NormalizeEmployeeCode returns the canonical stored form of an employee code.
// Codes are unique case-insensitively, so they are stored trimmed and upper-cased.
func NormalizeEmployeeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StaffMember represents an enrolled identity
type StaffMember struct {
	ID           string
	Name         string
	Role         Role
	EmployeeCode string
	Descriptors  []facematch.Descriptor // face model, never empty after creation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Candidate converts the staff member into a matching candidate.
func (s *StaffMember) Candidate() facematch.Candidate {
	return facematch.Candidate{ID: s.ID, Descriptors: s.Descriptors}
}

// Candidates converts staff members into matching candidates, preserving order.
func Candidates(staff []StaffMember) []facematch.Candidate {
	candidates := make([]facematch.Candidate, len(staff))
	for i := range staff {
		candidates[i] = staff[i].Candidate()
	}
	return candidates
}

// WithoutCandidate returns the candidates other than id, preserving order.
func WithoutCandidate(candidates []facematch.Candidate, id string) []facematch.Candidate {
	if id == "" {
		return candidates
	}
	return slices.DeleteFunc(slices.Clone(candidates), func(c facematch.Candidate) bool {
		return c.ID == id
	})
}

// StaffFilter narrows a staff listing
type StaffFilter struct {
	Query string // case-insensitive match on name, employee code, or role
	Limit int    // 0 means no limit
}

// AttendanceRecord is one staff member's attendance for one local calendar day
type AttendanceRecord struct {
	ID        string
	StaffID   string
	Day       time.Time // local midnight
	CheckIn   time.Time
	CheckOut  *time.Time
	Status    AttendanceStatus
	Method    AttendanceMethod
	CreatedAt time.Time

	// Populated by listings that join staff
	StaffName    string
	StaffRole    Role
	EmployeeCode string
}

// CheckedOut reports whether the record has been closed
func (r *AttendanceRecord) CheckedOut() bool {
	return r.CheckOut != nil
}

// DayKey formats the local calendar day of t as stored in the attendance table
func DayKey(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}
