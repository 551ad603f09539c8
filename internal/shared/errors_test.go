package shared

import "testing"

func TestCoreErrorFormat(t *testing.T) {
	err := NewCoreError("something broke", "TEST_ERROR", nil)
	if got := err.Error(); got != "TEST_ERROR: something broke" {
		t.Errorf("expected %q, got %q", "TEST_ERROR: something broke", got)
	}
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidationError("bad input", nil), "VALIDATION_ERROR: bad input"},
		{"memory", NewMemoryError("store full", nil), "MEMORY_ERROR: store full"},
		{"sync", NewSyncError("layer mismatch", nil), "SYNC_ERROR: layer mismatch"},
		{"encoding", NewEncodingError("unreadable", nil), "ENCODING_ERROR: unreadable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestErrorDetails(t *testing.T) {
	details := map[string]interface{}{"field": "scale", "value": -1.0}
	err := NewValidationError("scale must be positive", details)
	if err.Details["field"] != "scale" {
		t.Errorf("expected field detail to survive, got %v", err.Details["field"])
	}
	if err.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", err.Code)
	}
}
