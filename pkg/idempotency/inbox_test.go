package idempotency

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateKeyDeterministic(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 30, 5, 0, time.UTC)

	k1 := GenerateKey("nurse1", "course-1", "RETURN", 2, "Unused", ts)
	k2 := GenerateKey("nurse1", "course-1", "RETURN", 2, "Unused", ts.Add(20*time.Second))

	if k1 != k2 {
		t.Errorf("same submission within the minute produced different keys: %s vs %s", k1, k2)
	}
}

func TestGenerateKeyReasonChangesKey(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 30, 5, 0, time.UTC)

	// A return rejected for a missing reason and its corrected
	// resubmission must not collide.
	rejected := GenerateKey("nurse1", "course-1", "RETURN", 2, "", ts)
	corrected := GenerateKey("nurse1", "course-1", "RETURN", 2, "Unused", ts.Add(20*time.Second))

	if rejected == corrected {
		t.Error("adding a reason did not change the idempotency key")
	}

	expiry := GenerateKey("nurse1", "course-1", "RETURN", 2, "Expiry", ts)
	damage := GenerateKey("nurse1", "course-1", "RETURN", 2, "Damage", ts)
	if expiry == damage {
		t.Error("distinct reasons produced the same key")
	}
}

func TestGenerateKeyMinuteWindow(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 30, 59, 0, time.UTC)

	k1 := GenerateKey("nurse1", "course-1", "DISPENSE", 5, "", ts)
	k2 := GenerateKey("nurse1", "course-1", "DISPENSE", 5, "", ts.Add(time.Second))

	if k1 == k2 {
		t.Error("submissions in different minutes produced the same key")
	}
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("validation failed on reason: reason is required"), true},
		{errors.New("validation failed on quantity: exceeds current stock"), true},
		{errors.New("course not found"), true},
		{errors.New("invalid request body"), true},
		{errors.New("connection refused"), false},
		{errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		if got := isRejection(tt.err); got != tt.want {
			t.Errorf("isRejection(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
