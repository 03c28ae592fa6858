package database

import (
	"context"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// StaffReader provides read-only access to enrolled staff
type StaffReader interface {
	// GetStaff retrieves a staff member by ID, returns nil if not found
	GetStaff(ctx context.Context, id string) (*StaffMember, error)
	// GetStaffByCode retrieves a staff member by employee code (normalized before lookup), returns nil if not found
	GetStaffByCode(ctx context.Context, code string) (*StaffMember, error)
	// ListStaff returns staff matching the filter, newest first
	ListStaff(ctx context.Context, filter StaffFilter) ([]StaffMember, error)
	// Candidates returns every staff member with their face model, in a stable order
	Candidates(ctx context.Context) ([]facematch.Candidate, error)
	// CountStaff returns the total number of enrolled staff
	CountStaff(ctx context.Context) (int, error)
}

// StaffWriter provides write access to enrolled staff
type StaffWriter interface {
	StaffReader

	// CreateStaff stores a new staff member. Returns ErrDuplicateEmployeeCode if the code is taken.
	CreateStaff(ctx context.Context, staff *StaffMember) error

	// UpdateStaff replaces name, role and employee code. Descriptors are replaced wholesale
	// when non-empty. Returns ErrDuplicateEmployeeCode if the code belongs to someone else
	// and ErrNotFound if the staff member does not exist.
	UpdateStaff(ctx context.Context, staff *StaffMember) error

	// DeleteStaff removes a staff member together with their attendance history.
	// Returns false if the staff member did not exist.
	DeleteStaff(ctx context.Context, id string) (bool, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// GetAttendance returns the record of a staff member for the local day containing day, nil if none
	GetAttendance(ctx context.Context, staffID string, day time.Time) (*AttendanceRecord, error)
	// ListAttendance returns all records of a day joined with staff details, ordered by check-in
	ListAttendance(ctx context.Context, day time.Time) ([]AttendanceRecord, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// CreateAttendance inserts the day's record. Returns false without error if a record
	// for the same (staff, day) already exists; at most one concurrent caller wins.
	CreateAttendance(ctx context.Context, record *AttendanceRecord) (bool, error)

	// CloseAttendance sets the check-out time of an open record. Returns false without
	// error if the record is already closed or does not exist.
	CloseAttendance(ctx context.Context, id string, checkOut time.Time) (bool, error)
}
