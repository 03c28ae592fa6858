package database

import (
	"context"
	"fmt"
)

var (
	postgresStaffWriter      func() StaffWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	staffWriter func() StaffWriter,
	attendanceWriter func() AttendanceWriter,
) {
	postgresStaffWriter = staffWriter
	postgresAttendanceWriter = attendanceWriter
	postgresInitialized = true
}

// GetStaffReader returns a StaffReader from the PostgreSQL backend
func GetStaffReader(ctx context.Context) (StaffReader, error) {
	return GetStaffWriter(ctx)
}

// GetStaffWriter returns a StaffWriter from the PostgreSQL backend
func GetStaffWriter(ctx context.Context) (StaffWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresStaffWriter == nil {
		return nil, fmt.Errorf("PostgreSQL staff writer not registered")
	}
	return postgresStaffWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}
