// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// MockStaffStore is an in-memory implementation of database.StaffWriter
type MockStaffStore struct {
	mu    sync.RWMutex
	staff map[string]*database.StaffMember
	seq   int
	clock func() time.Time

	// Error injection
	GetError        error
	ListError       error
	CandidatesError error
	CreateError     error
	UpdateError     error
	DeleteError     error
	PingError       error

	// OnDelete is called with the staff ID after a successful delete, used to cascade into other stores
	OnDelete func(id string)
}

// NewMockStaffStore creates a new mock staff store
func NewMockStaffStore() *MockStaffStore {
	return &MockStaffStore{
		staff: make(map[string]*database.StaffMember),
		clock: time.Now,
	}
}

// AddStaff adds a staff member directly, bypassing uniqueness checks.
// Staff added later are considered newer.
func (m *MockStaffStore) AddStaff(s database.StaffMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("staff-%d", m.seq)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Unix(int64(m.seq), 0)
	}
	s.EmployeeCode = database.NormalizeEmployeeCode(s.EmployeeCode)
	m.staff[s.ID] = &s
}

// Ping reports PingError, standing in for a database reachability check
func (m *MockStaffStore) Ping(ctx context.Context) error {
	return m.PingError
}

// GetStaff retrieves a staff member by ID
func (m *MockStaffStore) GetStaff(ctx context.Context, id string) (*database.StaffMember, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, nil
	}
	c := clone(s)
	return &c, nil
}

// GetStaffByCode retrieves a staff member by normalized employee code
func (m *MockStaffStore) GetStaffByCode(ctx context.Context, code string) (*database.StaffMember, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.byCode(database.NormalizeEmployeeCode(code))
	if s == nil {
		return nil, nil
	}
	c := clone(s)
	return &c, nil
}

func (m *MockStaffStore) byCode(code string) *database.StaffMember {
	if code == "" {
		return nil
	}
	for _, s := range m.staff {
		if s.EmployeeCode == code {
			return s
		}
	}
	return nil
}

// ListStaff returns staff matching the filter, newest first
func (m *MockStaffStore) ListStaff(ctx context.Context, filter database.StaffFilter) ([]database.StaffMember, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.StaffMember
	for _, s := range m.sorted() {
		if !facematch.ContainsFold(filter.Query, s.Name, s.EmployeeCode, string(s.Role)) {
			continue
		}
		results = append(results, clone(s))
	}
	slices.Reverse(results)

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Candidates returns all face models, oldest first
func (m *MockStaffStore) Candidates(ctx context.Context) ([]facematch.Candidate, error) {
	if m.CandidatesError != nil {
		return nil, m.CandidatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var staff []database.StaffMember
	for _, s := range m.sorted() {
		staff = append(staff, clone(s))
	}
	return database.Candidates(staff), nil
}

// CountStaff returns the number of staff
func (m *MockStaffStore) CountStaff(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.staff), nil
}

// CreateStaff stores a new staff member
func (m *MockStaffStore) CreateStaff(ctx context.Context, s *database.StaffMember) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.EmployeeCode = database.NormalizeEmployeeCode(s.EmployeeCode)
	if m.byCode(s.EmployeeCode) != nil {
		return database.ErrDuplicateEmployeeCode
	}

	m.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("staff-%d", m.seq)
	}
	// Sequence keeps creation order strict even when the clock does not advance.
	s.CreatedAt = m.clock().Add(time.Duration(m.seq))
	s.UpdatedAt = s.CreatedAt

	c := clone(s)
	m.staff[s.ID] = &c
	return nil
}

// UpdateStaff replaces details and, when non-empty, descriptors
func (m *MockStaffStore) UpdateStaff(ctx context.Context, s *database.StaffMember) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.staff[s.ID]
	if !ok {
		return database.ErrNotFound
	}
	s.EmployeeCode = database.NormalizeEmployeeCode(s.EmployeeCode)
	if other := m.byCode(s.EmployeeCode); other != nil && other.ID != s.ID {
		return database.ErrDuplicateEmployeeCode
	}

	existing.Name = s.Name
	existing.Role = s.Role
	existing.EmployeeCode = s.EmployeeCode
	if len(s.Descriptors) > 0 {
		existing.Descriptors = slices.Clone(s.Descriptors)
	}
	existing.UpdatedAt = m.clock()

	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = existing.UpdatedAt
	s.Descriptors = slices.Clone(existing.Descriptors)
	return nil
}

// DeleteStaff removes a staff member
func (m *MockStaffStore) DeleteStaff(ctx context.Context, id string) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	_, ok := m.staff[id]
	delete(m.staff, id)
	onDelete := m.OnDelete
	m.mu.Unlock()

	if ok && onDelete != nil {
		onDelete(id)
	}
	return ok, nil
}

// sorted returns staff in creation order. Caller must hold the lock.
func (m *MockStaffStore) sorted() []*database.StaffMember {
	all := make([]*database.StaffMember, 0, len(m.staff))
	for _, s := range m.staff {
		all = append(all, s)
	}
	slices.SortFunc(all, func(a, b *database.StaffMember) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return all
}

func clone(s *database.StaffMember) database.StaffMember {
	c := *s
	c.Descriptors = slices.Clone(s.Descriptors)
	return c
}

// MockAttendanceStore is an in-memory implementation of database.AttendanceWriter.
// It enforces one record per (staff, day) and conditional check-out like the PostgreSQL store.
type MockAttendanceStore struct {
	mu      sync.Mutex
	records map[string]*database.AttendanceRecord
	seq     int

	// Staff, when set, is used to fill staff details in listings
	Staff database.StaffReader

	// Error injection
	GetError    error
	ListError   error
	CreateError error
	CloseError  error

	// BeforeCreate and BeforeClose run before the write is applied, used to simulate races
	BeforeCreate func()
	BeforeClose  func()
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{
		records: make(map[string]*database.AttendanceRecord),
	}
}

// AddRecord adds a record directly
func (m *MockAttendanceStore) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("att-%d", m.seq)
	}
	m.records[rec.ID] = &rec
}

// GetAttendance returns the record of a staff member for a day
func (m *MockAttendanceStore) GetAttendance(ctx context.Context, staffID string, day time.Time) (*database.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.find(staffID, database.DayKey(day))
	if rec == nil {
		return nil, nil
	}
	c := copyRecord(rec)
	return &c, nil
}

// ListAttendance returns the records of a day ordered by check-in
func (m *MockAttendanceStore) ListAttendance(ctx context.Context, day time.Time) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	key := database.DayKey(day)
	var records []database.AttendanceRecord
	for _, rec := range m.records {
		if database.DayKey(rec.Day) == key {
			records = append(records, copyRecord(rec))
		}
	}
	m.mu.Unlock()

	slices.SortFunc(records, func(a, b database.AttendanceRecord) int {
		if c := a.CheckIn.Compare(b.CheckIn); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if m.Staff != nil {
		for i := range records {
			s, err := m.Staff.GetStaff(ctx, records[i].StaffID)
			if err != nil {
				return nil, err
			}
			if s != nil {
				records[i].StaffName = s.Name
				records[i].StaffRole = s.Role
				records[i].EmployeeCode = s.EmployeeCode
			}
		}
	}
	return records, nil
}

// CreateAttendance inserts a record unless one exists for the same (staff, day)
func (m *MockAttendanceStore) CreateAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	if m.CreateError != nil {
		return false, m.CreateError
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(rec.StaffID, database.DayKey(rec.Day)) != nil {
		return false, nil
	}
	m.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("att-%d", m.seq)
	}
	rec.CreatedAt = rec.CheckIn
	c := copyRecord(rec)
	m.records[rec.ID] = &c
	return true, nil
}

// CloseAttendance sets check-out on an open record
func (m *MockAttendanceStore) CloseAttendance(ctx context.Context, id string, checkOut time.Time) (bool, error) {
	if m.CloseError != nil {
		return false, m.CloseError
	}
	if m.BeforeClose != nil {
		m.BeforeClose()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.CheckOut != nil {
		return false, nil
	}
	rec.CheckOut = &checkOut
	return true, nil
}

// DeleteByStaff removes all records of a staff member
func (m *MockAttendanceStore) DeleteByStaff(staffID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if rec.StaffID == staffID {
			delete(m.records, id)
		}
	}
}

// Count returns the number of stored records
func (m *MockAttendanceStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// find returns the record for (staff, day). Caller must hold the lock.
func (m *MockAttendanceStore) find(staffID, dayKey string) *database.AttendanceRecord {
	for _, rec := range m.records {
		if rec.StaffID == staffID && database.DayKey(rec.Day) == dayKey {
			return rec
		}
	}
	return nil
}

func copyRecord(rec *database.AttendanceRecord) database.AttendanceRecord {
	c := *rec
	if rec.CheckOut != nil {
		t := *rec.CheckOut
		c.CheckOut = &t
	}
	return c
}

// NewStores returns a staff and attendance store wired so that deleting staff cascades.
func NewStores() (*MockStaffStore, *MockAttendanceStore) {
	staff := NewMockStaffStore()
	attendance := NewMockAttendanceStore()
	attendance.Staff = staff
	staff.OnDelete = attendance.DeleteByStaff
	return staff, attendance
}
