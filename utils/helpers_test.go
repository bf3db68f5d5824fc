package utils

import (
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		country   string
		expect    string
		expectErr bool
	}{
		{name: "local with trunk zero", phone: "01001234567", country: "20", expect: "201001234567"},
		{name: "already international", phone: "+201001234567", country: "20", expect: "201001234567"},
		{name: "spaces and dashes stripped", phone: "0100-123 4567", country: "20", expect: "201001234567"},
		{name: "country code already present", phone: "201001234567", country: "20", expect: "201001234567"},
		{name: "letters rejected", phone: "call-me", country: "20", expectErr: true},
		{name: "too short rejected", phone: "12345", country: "20", expectErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.phone, tc.country)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expect {
				t.Fatalf("expected %q, got %q", tc.expect, got)
			}
		})
	}
}

func TestGenerateStudentCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateStudentCode(8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(code, "ST-") {
			t.Fatalf("missing prefix: %q", code)
		}
		if len(code) != len("ST-")+8 {
			t.Fatalf("unexpected length: %q", code)
		}
		for _, r := range code[3:] {
			if strings.ContainsRune("01IO", r) {
				t.Fatalf("ambiguous character %q in %q", r, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("codes look non-random: %d distinct of 50", len(seen))
	}
}
