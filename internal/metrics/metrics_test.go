package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/identify", "200"))

	RecordAPIRequest(http.MethodPost, "/api/v1/identify", http.StatusOK, 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/identify", "200"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordIdentify(t *testing.T) {
	tests := []struct {
		name    string
		matched bool
		found   bool
		label   string
	}{
		{"matched", true, true, "matched"},
		{"rejected with candidate", false, true, "rejected"},
		{"rejected empty pool", false, false, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(IdentifyTotal.WithLabelValues(tt.label))
			RecordIdentify(tt.matched, tt.found, 0.3)
			after := testutil.ToFloat64(IdentifyTotal.WithLabelValues(tt.label))
			if after-before != 1 {
				t.Errorf("expected %q counter to increase by 1, got %v", tt.label, after-before)
			}
		})
	}
}

func TestRecordConflictCheck(t *testing.T) {
	before := testutil.ToFloat64(ConflictChecksTotal.WithLabelValues("conflict"))
	RecordConflictCheck(true)
	if got := testutil.ToFloat64(ConflictChecksTotal.WithLabelValues("conflict")) - before; got != 1 {
		t.Errorf("expected conflict counter to increase by 1, got %v", got)
	}

	before = testutil.ToFloat64(ConflictChecksTotal.WithLabelValues("clear"))
	RecordConflictCheck(false)
	if got := testutil.ToFloat64(ConflictChecksTotal.WithLabelValues("clear")) - before; got != 1 {
		t.Errorf("expected clear counter to increase by 1, got %v", got)
	}
}

func TestRecordDescriptorRequest(t *testing.T) {
	before := testutil.ToFloat64(DescriptorRequestErrors.WithLabelValues("/embed/face"))

	RecordDescriptorRequest("/embed/face", time.Second, nil)
	RecordDescriptorRequest("/embed/face", time.Second, errors.New("connection refused"))

	after := testutil.ToFloat64(DescriptorRequestErrors.WithLabelValues("/embed/face"))
	if after-before != 1 {
		t.Errorf("expected error counter to increase by 1, got %v", after-before)
	}
}
