package enrollment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mock"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/validation"
)

func newTestService(t *testing.T) (*Service, *mock.MockStaffStore, *mock.MockAttendanceStore) {
	t.Helper()
	staff, records := mock.NewStores()
	staff.AddStaff(database.StaffMember{
		ID:           "bob",
		Name:         "Bob",
		Role:         database.RoleNurse,
		EmployeeCode: "EMP-002",
		Descriptors:  []facematch.Descriptor{{0, 0, 0}},
	})
	staff.AddStaff(database.StaffMember{
		ID:           "carol",
		Name:         "Carol",
		Role:         database.RoleDoctor,
		EmployeeCode: "EMP-003",
		Descriptors:  []facematch.Descriptor{{1, 1, 1}},
	})
	return NewService(staff, config.DefaultMatching()), staff, records
}

// bobLikeSamples has 4 of 6 samples within 0.40 of Bob, the closest at 0.35.
func bobLikeSamples() []facematch.Descriptor {
	return []facematch.Descriptor{
		{0, 0, 0.35},
		{0, 0, 0.40},
		{0, 0.40, 0},
		{0.40, 0, 0},
		{0, 0, -0.9},
		{0, -0.9, 0},
	}
}

func farSamples() []facematch.Descriptor {
	return []facematch.Descriptor{
		{-1, 0, 0},
		{-1, 0.1, 0},
		{-1, 0, 0.1},
	}
}

func TestRegister_NewStaff(t *testing.T) {
	svc, staff, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterRequest{
		Name:         "Dana",
		EmployeeCode: " emp-004 ",
		Samples:      farSamples(),
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if !res.Created {
		t.Error("expected a new staff member")
	}
	if res.Staff.Role != database.RoleDoctor {
		t.Errorf("expected default role Doctor, got %q", res.Staff.Role)
	}

	stored, _ := staff.GetStaffByCode(ctx, "EMP-004")
	if stored == nil {
		t.Fatal("expected staff to be stored under the normalized code")
	}
	if len(stored.Descriptors) != 4 {
		t.Fatalf("expected average plus 3 samples, got %d descriptors", len(stored.Descriptors))
	}
	avg := stored.Descriptors[0]
	if math.Abs(avg[0]+1) > 1e-9 || math.Abs(avg[1]-0.1/3) > 1e-9 {
		t.Errorf("first descriptor is not the sample average: %v", avg)
	}
}

func TestRegister_FaceConflict(t *testing.T) {
	svc, staff, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:         "Impostor",
		Role:         "nurse",
		EmployeeCode: "EMP-099",
		Samples:      bobLikeSamples(),
	})

	var conflictErr *FaceConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected FaceConflictError, got %v", err)
	}
	m := conflictErr.Match
	if m.Staff.ID != "bob" || m.SupportHits != 4 || m.Score != 65 || !m.Conflict {
		t.Errorf("unexpected conflict: %+v", m)
	}
	if n, _ := staff.CountStaff(context.Background()); n != 2 {
		t.Errorf("expected nothing to be stored, have %d staff", n)
	}
}

func TestRegister_SingleCloseSampleIsNotEnough(t *testing.T) {
	svc, _, _ := newTestService(t)

	samples := append(farSamples(), facematch.Descriptor{0, 0, 0.01})
	res, err := svc.Register(context.Background(), RegisterRequest{
		Name:         "Lookalike",
		EmployeeCode: "EMP-050",
		Samples:      samples,
	})
	if err != nil {
		t.Fatalf("expected registration to pass the support gate, got %v", err)
	}
	if !res.Created {
		t.Error("expected creation")
	}
}

func TestRegister_EmployeeExists(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:         "Bobby",
		EmployeeCode: "emp-002",
		Samples:      farSamples(),
	})

	var existsErr *EmployeeExistsError
	if !errors.As(err, &existsErr) {
		t.Fatalf("expected EmployeeExistsError, got %v", err)
	}
	if existsErr.Existing.ID != "bob" || existsErr.Existing.Name != "Bob" {
		t.Errorf("unexpected existing staff: %+v", existsErr.Existing)
	}
}

func TestRegister_OverwriteExcludesOwnFace(t *testing.T) {
	svc, staff, _ := newTestService(t)
	ctx := context.Background()

	// Bob re-enrolls with his own face; comparing against himself must not block it.
	res, err := svc.Register(ctx, RegisterRequest{
		Name:             "Bob Updated",
		Role:             "Admin",
		EmployeeCode:     "EMP-002",
		Samples:          bobLikeSamples(),
		ConfirmOverwrite: true,
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if res.Created || res.Staff.ID != "bob" {
		t.Errorf("expected bob to be overwritten, got %+v", res)
	}

	stored, _ := staff.GetStaff(ctx, "bob")
	if stored.Name != "Bob Updated" || stored.Role != database.RoleAdmin {
		t.Errorf("details not replaced: %+v", stored)
	}
	if len(stored.Descriptors) != 7 {
		t.Errorf("expected descriptors replaced wholesale (7), got %d", len(stored.Descriptors))
	}
}

func TestRegister_OverwriteStillChecksOthers(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:             "Carol",
		EmployeeCode:     "EMP-003",
		Samples:          bobLikeSamples(),
		ConfirmOverwrite: true,
	})

	var conflictErr *FaceConflictError
	if !errors.As(err, &conflictErr) || conflictErr.Match.Staff.ID != "bob" {
		t.Fatalf("expected conflict with bob, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{EmployeeCode: "X", Samples: farSamples()}},
		{"missing code", RegisterRequest{Name: "X", Samples: farSamples()}},
		{"no samples", RegisterRequest{Name: "X", EmployeeCode: "X"}},
		{"empty sample", RegisterRequest{Name: "X", EmployeeCode: "X", Samples: []facematch.Descriptor{{}}}},
		{"unknown role", RegisterRequest{Name: "X", EmployeeCode: "X", Role: "Janitor", Samples: farSamples()}},
		{"not a number", RegisterRequest{Name: "X", EmployeeCode: "X", Samples: []facematch.Descriptor{{math.NaN()}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			_, err := svc.Register(context.Background(), tt.req)

			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegister_StoreError(t *testing.T) {
	svc, staff, _ := newTestService(t)
	staff.CandidatesError = errors.New("db down")

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "X", EmployeeCode: "X", Samples: farSamples()})
	if err == nil {
		t.Fatal("expected error")
	}
	var conflictErr *FaceConflictError
	if errors.As(err, &conflictErr) {
		t.Error("store errors must not look like conflicts")
	}
}

func TestValidate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("code exists", func(t *testing.T) {
		res, err := svc.Validate(ctx, ValidateRequest{EmployeeCode: "emp-003"})
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if !res.EmployeeExists || res.Employee == nil || res.Employee.ID != "carol" {
			t.Errorf("expected carol, got %+v", res)
		}
		if res.FaceConflict != nil || res.NearestFace != nil {
			t.Error("no face check expected without descriptors")
		}
	})

	t.Run("face conflict", func(t *testing.T) {
		res, err := svc.Validate(ctx, ValidateRequest{EmployeeCode: "EMP-100", Descriptors: bobLikeSamples()})
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if res.EmployeeExists {
			t.Error("EMP-100 should be free")
		}
		if res.FaceConflict == nil || res.FaceConflict.Staff.ID != "bob" {
			t.Errorf("expected conflict with bob, got %+v", res.FaceConflict)
		}
	})

	t.Run("excluded identity", func(t *testing.T) {
		res, err := svc.Validate(ctx, ValidateRequest{Descriptors: bobLikeSamples(), ExcludeID: "bob"})
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if res.FaceConflict != nil {
			t.Errorf("expected no conflict when bob is excluded, got %+v", res.FaceConflict)
		}
		if res.NearestFace == nil || res.NearestFace.Staff.ID != "carol" {
			t.Errorf("expected carol as the nearest remaining face, got %+v", res.NearestFace)
		}
	})

	t.Run("near miss reports score", func(t *testing.T) {
		res, err := svc.Validate(ctx, ValidateRequest{Descriptors: []facematch.Descriptor{{0, 0, 0.1}}})
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if res.FaceConflict != nil {
			t.Error("a single sample cannot reach the support requirement")
		}
		if res.NearestFace == nil || res.NearestFace.Score != 90 {
			t.Errorf("expected nearest face with score 90, got %+v", res.NearestFace)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("details only keeps face", func(t *testing.T) {
		svc, staff, _ := newTestService(t)
		_, err := svc.Update(ctx, "carol", UpdateRequest{Name: "Carol B", Role: "Surgeon", EmployeeCode: "emp-003"})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		stored, _ := staff.GetStaff(ctx, "carol")
		if stored.Name != "Carol B" || stored.Role != database.RoleSurgeon || len(stored.Descriptors) != 1 {
			t.Errorf("unexpected stored staff: %+v", stored)
		}
	})

	t.Run("omitted fields keep existing values", func(t *testing.T) {
		svc, staff, _ := newTestService(t)
		updated, err := svc.Update(ctx, "bob", UpdateRequest{Name: "Bob Renamed", EmployeeCode: "EMP-002"})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		if updated.Role != database.RoleNurse {
			t.Errorf("expected role Nurse to be kept, got %s", updated.Role)
		}

		_, err = svc.Update(ctx, "bob", UpdateRequest{Role: "Admin"})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		stored, _ := staff.GetStaff(ctx, "bob")
		if stored.Name != "Bob Renamed" || stored.EmployeeCode != "EMP-002" || stored.Role != database.RoleAdmin {
			t.Errorf("unexpected stored staff: %+v", stored)
		}
	})

	t.Run("samples replace face model", func(t *testing.T) {
		svc, staff, _ := newTestService(t)
		samples := farSamples()
		updated, err := svc.Update(ctx, "carol", UpdateRequest{Name: "Carol", EmployeeCode: "EMP-003", Descriptors: samples})
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		stored, _ := staff.GetStaff(ctx, "carol")
		if len(stored.Descriptors) != len(samples)+1 || len(updated.Descriptors) != len(samples)+1 {
			t.Errorf("expected average plus %d samples, got %d stored", len(samples), len(stored.Descriptors))
		}
	})

	t.Run("duplicate code", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Update(ctx, "carol", UpdateRequest{Name: "Carol", EmployeeCode: "EMP-002"})
		var existsErr *EmployeeExistsError
		if !errors.As(err, &existsErr) || existsErr.Existing.ID != "bob" {
			t.Errorf("expected EmployeeExistsError for bob, got %v", err)
		}
	})

	t.Run("face conflict", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Update(ctx, "carol", UpdateRequest{Name: "Carol", EmployeeCode: "EMP-003", Descriptors: bobLikeSamples()})
		var conflictErr *FaceConflictError
		if !errors.As(err, &conflictErr) {
			t.Errorf("expected FaceConflictError, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Update(ctx, "nobody", UpdateRequest{Name: "X", EmployeeCode: "X"})
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, staff, records := newTestService(t)
	records.AddRecord(database.AttendanceRecord{
		StaffID: "bob",
		Day:     time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local),
		CheckIn: time.Date(2026, time.March, 9, 9, 0, 0, 0, time.Local),
	})

	if err := svc.Delete(ctx, "bob", "EMP-999"); !errors.Is(err, ErrDeleteConfirmation) {
		t.Fatalf("expected ErrDeleteConfirmation, got %v", err)
	}
	if err := svc.Delete(ctx, "bob", "emp-002"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if s, _ := staff.GetStaff(ctx, "bob"); s != nil {
		t.Error("bob still present")
	}
	if records.Count() != 0 {
		t.Errorf("expected attendance to cascade, %d records left", records.Count())
	}
	if err := svc.Delete(ctx, "bob", "emp-002"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFaceModel(t *testing.T) {
	samples := []facematch.Descriptor{{0, 2}, {2, 0}}
	model := FaceModel(samples)

	if len(model) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(model))
	}
	if model[0][0] != 1 || model[0][1] != 1 {
		t.Errorf("expected average [1 1], got %v", model[0])
	}
	model[1][0] = 99
	if samples[0][0] != 0 {
		t.Error("FaceModel must copy samples")
	}
}
