package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mock"
	"github.com/kozaktomas/staff-attendance/internal/descriptor"
	"github.com/kozaktomas/staff-attendance/internal/enrollment"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// testEnv bundles in-memory stores and the services built on them
type testEnv struct {
	staff      *mock.MockStaffStore
	records    *mock.MockAttendanceStore
	attendance *attendance.Service
	enrollment *enrollment.Service
}

// newTestEnv creates stores seeded with two staff members: alice at the origin, bob at (1, 1, 1)
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	staff, records := mock.NewStores()
	staff.AddStaff(database.StaffMember{
		ID:           "alice",
		Name:         "Alice",
		Role:         database.RoleSurgeon,
		EmployeeCode: "EMP-001",
		Descriptors:  []facematch.Descriptor{{0, 0, 0}},
	})
	staff.AddStaff(database.StaffMember{
		ID:           "bob",
		Name:         "Bob",
		Role:         database.RoleNurse,
		EmployeeCode: "EMP-002",
		Descriptors:  []facematch.Descriptor{{1, 1, 1}},
	})

	matching := config.DefaultMatching()
	return &testEnv{
		staff:      staff,
		records:    records,
		attendance: attendance.NewService(staff, records, matching.MatchThreshold),
		enrollment: enrollment.NewService(staff, matching),
	}
}

// fakeDescriber returns a fixed observation
type fakeDescriber struct {
	obs   *descriptor.Observation
	err   error
	calls int
}

func (f *fakeDescriber) Describe(ctx context.Context, image []byte) (*descriptor.Observation, error) {
	f.calls++
	return f.obs, f.err
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// assertErrorCode checks the machine-readable code of an error response
func assertErrorCode(t *testing.T, recorder *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	var result ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if result.Code != expectedCode {
		t.Errorf("expected code '%s', got '%s'", expectedCode, result.Code)
	}
}
