package services

import (
	"testing"

	"studenttrack_go/services/alerts"
)

func TestSweepSummary(t *testing.T) {
	tests := []struct {
		name   string
		result alerts.SweepResult
		expect string
	}{
		{
			name:   "counts are reported as plain integers",
			result: alerts.SweepResult{Students: 12, Events: 3},
			expect: "3 new alert(s) opened across 12 student(s)",
		},
		{
			name:   "zero events",
			result: alerts.SweepResult{Students: 5},
			expect: "0 new alert(s) opened across 5 student(s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sweepSummary(tt.result); got != tt.expect {
				t.Errorf("sweepSummary() = %q, want %q", got, tt.expect)
			}
		})
	}
}
