//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	pool, err := Initialize(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to initialize pool: %v", err)
	}

	cleanup := func() {
		_ = pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestMigrationsIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for range 3 {
		wg.Go(func() {
			errs <- pool.Migrate(ctx)
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Migrate() failed: %v", err)
		}
	}

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied() failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_init.sql" {
		t.Errorf("unexpected applied migrations: %v", applied)
	}
}

func TestStaffRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewStaffRepository(pool)

	alice := &database.StaffMember{
		Name:         "Alice Novak",
		Role:         database.RoleSurgeon,
		EmployeeCode: " emp-001 ",
		Descriptors:  []facematch.Descriptor{{0.5, 0.25, 0}, {0.25, 0.5, 0}},
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		if err := repo.CreateStaff(ctx, alice); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
		if alice.ID == "" {
			t.Fatal("expected ID to be assigned")
		}

		got, err := repo.GetStaff(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetStaff() failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected staff member, got nil")
		}
		if got.EmployeeCode != "EMP-001" {
			t.Errorf("expected normalized code EMP-001, got %q", got.EmployeeCode)
		}
		if len(got.Descriptors) != 2 || got.Descriptors[0][0] != 0.5 || got.Descriptors[1][1] != 0.5 {
			t.Errorf("descriptors not preserved in order: %v", got.Descriptors)
		}
	})

	t.Run("GetByCodeIsCaseInsensitive", func(t *testing.T) {
		got, err := repo.GetStaffByCode(ctx, "Emp-001")
		if err != nil {
			t.Fatalf("GetStaffByCode() failed: %v", err)
		}
		if got == nil || got.ID != alice.ID {
			t.Fatalf("expected alice, got %+v", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetStaff(ctx, "not-a-uuid")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil for malformed id, got %+v, %v", got, err)
		}
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		dup := &database.StaffMember{
			Name:         "Impostor",
			Role:         database.RoleNurse,
			EmployeeCode: "EMP-001",
			Descriptors:  []facematch.Descriptor{{1, 1, 1}},
		}
		if err := repo.CreateStaff(ctx, dup); !errors.Is(err, database.ErrDuplicateEmployeeCode) {
			t.Errorf("expected ErrDuplicateEmployeeCode, got %v", err)
		}
	})

	t.Run("UpdateReplacesDescriptors", func(t *testing.T) {
		alice.Name = "Alice Nováková"
		alice.Descriptors = []facematch.Descriptor{{0.1, 0.1, 0.1}}
		if err := repo.UpdateStaff(ctx, alice); err != nil {
			t.Fatalf("UpdateStaff() failed: %v", err)
		}

		got, err := repo.GetStaff(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetStaff() failed: %v", err)
		}
		if got.Name != "Alice Nováková" {
			t.Errorf("expected updated name, got %q", got.Name)
		}
		if len(got.Descriptors) != 1 {
			t.Errorf("expected 1 descriptor after replacement, got %d", len(got.Descriptors))
		}
	})

	t.Run("ListAndCandidates", func(t *testing.T) {
		bob := &database.StaffMember{
			Name:         "Bob 100%",
			Role:         database.RoleNurse,
			EmployeeCode: "EMP-002",
			Descriptors:  []facematch.Descriptor{{0.9, 0.9, 0.9}},
		}
		if err := repo.CreateStaff(ctx, bob); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}

		all, err := repo.ListStaff(ctx, database.StaffFilter{})
		if err != nil {
			t.Fatalf("ListStaff() failed: %v", err)
		}
		if len(all) != 2 || all[0].ID != bob.ID {
			t.Errorf("expected newest first, got %+v", all)
		}

		filtered, err := repo.ListStaff(ctx, database.StaffFilter{Query: "nurse"})
		if err != nil {
			t.Fatalf("ListStaff() failed: %v", err)
		}
		if len(filtered) != 1 || filtered[0].ID != bob.ID {
			t.Errorf("expected only bob for role query, got %+v", filtered)
		}

		literal, err := repo.ListStaff(ctx, database.StaffFilter{Query: "100%"})
		if err != nil {
			t.Fatalf("ListStaff() failed: %v", err)
		}
		if len(literal) != 1 {
			t.Errorf("expected %% to match literally, got %d results", len(literal))
		}

		folded, err := repo.ListStaff(ctx, database.StaffFilter{Query: "NOVAKOVA"})
		if err != nil {
			t.Fatalf("ListStaff() failed: %v", err)
		}
		if len(folded) != 1 || folded[0].ID != alice.ID {
			t.Errorf("expected alice for a query without diacritics, got %+v", folded)
		}

		limited, err := repo.ListStaff(ctx, database.StaffFilter{Limit: 1})
		if err != nil {
			t.Fatalf("ListStaff() failed: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 result with limit, got %d", len(limited))
		}

		candidates, err := repo.Candidates(ctx)
		if err != nil {
			t.Fatalf("Candidates() failed: %v", err)
		}
		if len(candidates) != 2 || candidates[0].ID != alice.ID {
			t.Errorf("expected oldest enrollment first, got %+v", candidates)
		}

		match := facematch.Resolve(facematch.Descriptor{0.9, 0.9, 0.9}, candidates)
		if match.ID != bob.ID || match.Distance > 1e-6 {
			t.Errorf("expected exact match on bob, got %+v", match)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	staffRepo := NewStaffRepository(pool)
	repo := NewAttendanceRepository(pool)

	carol := &database.StaffMember{
		Name:         "Carol",
		Role:         database.RoleNurse,
		EmployeeCode: "EMP-010",
		Descriptors:  []facematch.Descriptor{{0, 0, 1}},
	}
	if err := staffRepo.CreateStaff(ctx, carol); err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}

	day := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local)
	checkIn := day.Add(9 * time.Hour)

	t.Run("ConcurrentCreateHasSingleWinner", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := repo.CreateAttendance(ctx, &database.AttendanceRecord{
					StaffID: carol.ID,
					Day:     day,
					CheckIn: checkIn,
					Status:  database.StatusPresent,
					Method:  database.MethodFaceScan,
				})
				if err != nil {
					t.Errorf("CreateAttendance() failed: %v", err)
					return
				}
				if created {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 1 {
			t.Errorf("expected exactly one created record, got %d", wins)
		}
	})

	t.Run("GetAndClose", func(t *testing.T) {
		rec, err := repo.GetAttendance(ctx, carol.ID, day)
		if err != nil {
			t.Fatalf("GetAttendance() failed: %v", err)
		}
		if rec == nil {
			t.Fatal("expected record")
		}
		if !rec.Day.Equal(day) {
			t.Errorf("expected day %v, got %v", day, rec.Day)
		}
		if rec.CheckedOut() {
			t.Fatal("expected open record")
		}

		closed, err := repo.CloseAttendance(ctx, rec.ID, day.Add(17*time.Hour))
		if err != nil || !closed {
			t.Fatalf("CloseAttendance() = %v, %v", closed, err)
		}
		closed, err = repo.CloseAttendance(ctx, rec.ID, day.Add(18*time.Hour))
		if err != nil || closed {
			t.Errorf("second CloseAttendance() = %v, %v, want false, nil", closed, err)
		}

		rec, err = repo.GetAttendance(ctx, carol.ID, day)
		if err != nil {
			t.Fatalf("GetAttendance() failed: %v", err)
		}
		if rec.CheckOut == nil || rec.CheckOut.Hour() != 17 {
			t.Errorf("expected 17:00 check-out, got %v", rec.CheckOut)
		}
	})

	t.Run("ListJoinsStaff", func(t *testing.T) {
		records, err := repo.ListAttendance(ctx, day)
		if err != nil {
			t.Fatalf("ListAttendance() failed: %v", err)
		}
		if len(records) != 1 || records[0].StaffName != "Carol" || records[0].EmployeeCode != "EMP-010" {
			t.Errorf("unexpected records: %+v", records)
		}

		other, err := repo.ListAttendance(ctx, day.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("ListAttendance() failed: %v", err)
		}
		if len(other) != 0 {
			t.Errorf("expected no records next day, got %d", len(other))
		}
	})

	t.Run("DeleteStaffCascades", func(t *testing.T) {
		deleted, err := staffRepo.DeleteStaff(ctx, carol.ID)
		if err != nil || !deleted {
			t.Fatalf("DeleteStaff() = %v, %v", deleted, err)
		}
		rec, err := repo.GetAttendance(ctx, carol.ID, day)
		if err != nil {
			t.Fatalf("GetAttendance() failed: %v", err)
		}
		if rec != nil {
			t.Errorf("expected attendance to be removed with staff, got %+v", rec)
		}
	})
}
