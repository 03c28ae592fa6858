package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// StaffRepository provides PostgreSQL-backed staff and face model storage.
type StaffRepository struct {
	pool *Pool
}

// NewStaffRepository creates a new PostgreSQL staff repository.
func NewStaffRepository(pool *Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

const staffColumns = `id, name, role, employee_code, created_at, updated_at`

// GetStaff retrieves a staff member by ID.
func (r *StaffRepository) GetStaff(ctx context.Context, id string) (*database.StaffMember, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.getOne(ctx, "SELECT "+staffColumns+" FROM staff WHERE id = $1", id)
}

// GetStaffByCode retrieves a staff member by employee code.
func (r *StaffRepository) GetStaffByCode(ctx context.Context, code string) (*database.StaffMember, error) {
	code = database.NormalizeEmployeeCode(code)
	if code == "" {
		return nil, nil
	}
	return r.getOne(ctx, "SELECT "+staffColumns+" FROM staff WHERE employee_code = $1", code)
}

func (r *StaffRepository) getOne(ctx context.Context, query string, arg any) (*database.StaffMember, error) {
	var s database.StaffMember
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Name, &s.Role, &s.EmployeeCode, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}

	descriptors, err := r.loadDescriptors(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Descriptors = descriptors[s.ID]
	return &s, nil
}

// ListStaff returns staff matching the filter, newest first.
// Matching runs in Go so that it ignores diacritics the same way everywhere;
// the staff table stays in the hundreds of rows.
func (r *StaffRepository) ListStaff(ctx context.Context, filter database.StaffFilter) ([]database.StaffMember, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+staffColumns+" FROM staff ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	all, err := scanStaff(rows)
	if err != nil {
		return nil, err
	}

	var staff []database.StaffMember
	for _, s := range all {
		if !facematch.ContainsFold(filter.Query, s.Name, s.EmployeeCode, string(s.Role)) {
			continue
		}
		staff = append(staff, s)
		if filter.Limit > 0 && len(staff) == filter.Limit {
			break
		}
	}
	if err := r.attachDescriptors(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// Candidates returns every staff member's face model, oldest enrollment first.
func (r *StaffRepository) Candidates(ctx context.Context) ([]facematch.Candidate, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+staffColumns+" FROM staff ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	staff, err := scanStaff(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachDescriptors(ctx, staff); err != nil {
		return nil, err
	}
	return database.Candidates(staff), nil
}

// CountStaff returns the total number of enrolled staff.
func (r *StaffRepository) CountStaff(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM staff").Scan(&count); err != nil {
		return 0, fmt.Errorf("count staff: %w", err)
	}
	return count, nil
}

// CreateStaff stores a new staff member with their face model.
func (r *StaffRepository) CreateStaff(ctx context.Context, staff *database.StaffMember) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	staff.EmployeeCode = database.NormalizeEmployeeCode(staff.EmployeeCode)
	now := time.Now()
	staff.CreatedAt = now
	staff.UpdatedAt = now

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO staff (id, name, role, employee_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, staff.ID, staff.Name, staff.Role, staff.EmployeeCode, staff.CreatedAt, staff.UpdatedAt)
	if isUniqueViolation(err) {
		return database.ErrDuplicateEmployeeCode
	}
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}

	if err := insertDescriptors(ctx, tx, staff.ID, staff.Descriptors); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff: %w", err)
	}
	return nil
}

// UpdateStaff replaces a staff member's details and, when provided, their face model.
func (r *StaffRepository) UpdateStaff(ctx context.Context, staff *database.StaffMember) error {
	if _, err := uuid.Parse(staff.ID); err != nil {
		return database.ErrNotFound
	}
	staff.EmployeeCode = database.NormalizeEmployeeCode(staff.EmployeeCode)
	staff.UpdatedAt = time.Now()

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		UPDATE staff SET name = $2, role = $3, employee_code = $4, updated_at = $5
		WHERE id = $1
		RETURNING created_at
	`, staff.ID, staff.Name, staff.Role, staff.EmployeeCode, staff.UpdatedAt).Scan(&staff.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if isUniqueViolation(err) {
		return database.ErrDuplicateEmployeeCode
	}
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}

	if len(staff.Descriptors) > 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM face_descriptors WHERE staff_id = $1", staff.ID); err != nil {
			return fmt.Errorf("delete descriptors: %w", err)
		}
		if err := insertDescriptors(ctx, tx, staff.ID, staff.Descriptors); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff: %w", err)
	}
	return nil
}

// DeleteStaff removes a staff member; descriptors and attendance cascade.
func (r *StaffRepository) DeleteStaff(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM staff WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete staff: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

func insertDescriptors(ctx context.Context, tx *sql.Tx, staffID string, descriptors []facematch.Descriptor) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO face_descriptors (staff_id, position, descriptor)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("prepare descriptor insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range descriptors {
		if _, err := stmt.ExecContext(ctx, staffID, i, pgvector.NewVector(d.Float32())); err != nil {
			return fmt.Errorf("insert descriptor %d: %w", i, err)
		}
	}
	return nil
}

// attachDescriptors loads face models for all given staff in one query.
func (r *StaffRepository) attachDescriptors(ctx context.Context, staff []database.StaffMember) error {
	if len(staff) == 0 {
		return nil
	}
	ids := make([]string, len(staff))
	for i := range staff {
		ids[i] = staff[i].ID
	}

	descriptors, err := r.loadDescriptors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range staff {
		staff[i].Descriptors = descriptors[staff[i].ID]
	}
	return nil
}

func (r *StaffRepository) loadDescriptors(ctx context.Context, ids []string) (map[string][]facematch.Descriptor, error) {
	query := `
		SELECT staff_id, descriptor
		FROM face_descriptors
		WHERE staff_id = ANY($1::uuid[])
		ORDER BY staff_id, position
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]facematch.Descriptor, len(ids))
	for rows.Next() {
		var staffID string
		var vec pgvector.Vector
		if err := rows.Scan(&staffID, &vec); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		result[staffID] = append(result[staffID], facematch.NewDescriptor(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return result, nil
}

func scanStaff(rows *sql.Rows) ([]database.StaffMember, error) {
	var staff []database.StaffMember
	for rows.Next() {
		var s database.StaffMember
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.EmployeeCode, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		staff = append(staff, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return staff, nil
}
