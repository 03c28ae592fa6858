package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/staff-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// The (staff_id, day) unique constraint guarantees one record per staff member and day.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// GetAttendance returns the record of a staff member for the given day.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, staffID string, day time.Time) (*database.AttendanceRecord, error) {
	if _, err := uuid.Parse(staffID); err != nil {
		return nil, nil
	}

	query := `
		SELECT id, staff_id, day, check_in, check_out, status, method, created_at
		FROM attendance
		WHERE staff_id = $1 AND day = $2
	`

	var rec database.AttendanceRecord
	var checkOut sql.NullTime
	err := r.pool.QueryRow(ctx, query, staffID, database.DayKey(day)).Scan(
		&rec.ID, &rec.StaffID, &rec.Day, &rec.CheckIn, &checkOut, &rec.Status, &rec.Method, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	normalizeRecord(&rec, checkOut)
	return &rec, nil
}

// ListAttendance returns all records of a day with staff details, earliest check-in first.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, day time.Time) ([]database.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.staff_id, a.day, a.check_in, a.check_out, a.status, a.method, a.created_at,
		       s.name, s.role, s.employee_code
		FROM attendance a
		JOIN staff s ON s.id = a.staff_id
		WHERE a.day = $1
		ORDER BY a.check_in, a.id
	`

	rows, err := r.pool.Query(ctx, query, database.DayKey(day))
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var checkOut sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.StaffID, &rec.Day, &rec.CheckIn, &checkOut, &rec.Status, &rec.Method, &rec.CreatedAt,
			&rec.StaffName, &rec.StaffRole, &rec.EmployeeCode,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		normalizeRecord(&rec, checkOut)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// CreateAttendance inserts the day's record unless one already exists.
func (r *AttendanceRepository) CreateAttendance(ctx context.Context, record *database.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now()

	query := `
		INSERT INTO attendance (id, staff_id, day, check_in, check_out, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (staff_id, day) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		record.ID, record.StaffID, database.DayKey(record.Day), record.CheckIn, record.CheckOut,
		record.Status, record.Method, record.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// CloseAttendance records the check-out of an open record.
func (r *AttendanceRepository) CloseAttendance(ctx context.Context, id string, checkOut time.Time) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	result, err := r.pool.Exec(ctx,
		"UPDATE attendance SET check_out = $2 WHERE id = $1 AND check_out IS NULL", id, checkOut)
	if err != nil {
		return false, fmt.Errorf("close attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// normalizeRecord converts scanned database values to local time.
// DATE columns come back as UTC midnight and are re-anchored to local midnight.
func normalizeRecord(rec *database.AttendanceRecord, checkOut sql.NullTime) {
	rec.Day = time.Date(rec.Day.Year(), rec.Day.Month(), rec.Day.Day(), 0, 0, 0, 0, time.Local)
	rec.CheckIn = rec.CheckIn.Local()
	if checkOut.Valid {
		t := checkOut.Time.Local()
		rec.CheckOut = &t
	}
}
