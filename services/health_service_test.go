package services

import (
	"testing"
	"time"
)

func TestCombineStatus(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		candidate string
		want      string
	}{
		{"ok stays ok", overallStatusOK, overallStatusOK, overallStatusOK},
		{"degraded wins over ok", overallStatusOK, overallStatusDegraded, overallStatusDegraded},
		{"critical wins over degraded", overallStatusDegraded, overallStatusCritical, overallStatusCritical},
		{"critical not downgraded", overallStatusCritical, overallStatusOK, overallStatusCritical},
		{"unknown current treated as ok", "bogus", overallStatusDegraded, overallStatusDegraded},
		{"unknown candidate ignored", overallStatusDegraded, "bogus", overallStatusDegraded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := combineStatus(tc.current, tc.candidate); got != tc.want {
				t.Errorf("combineStatus(%q, %q) = %q, want %q", tc.current, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-5 * time.Second, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Hour, "2h"},
		{26*time.Hour + 3*time.Minute, "1d 2h 3m"},
	}

	for _, tc := range cases {
		if got := humanizeDuration(tc.in); got != tc.want {
			t.Errorf("humanizeDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
