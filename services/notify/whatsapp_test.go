package notify

import (
	"strings"
	"testing"

	"studenttrack_go/models"
)

func TestBuildWhatsAppLink(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		country   string
		text      string
		expectURL string
		expectErr bool
	}{
		{
			name:      "local number gets country code",
			phone:     "01001234567",
			country:   "20",
			text:      "hello",
			expectURL: "https://wa.me/201001234567?text=hello",
		},
		{
			name:      "international number kept as is",
			phone:     "+20 100 123 4567",
			country:   "20",
			text:      "hi",
			expectURL: "https://wa.me/201001234567?text=hi",
		},
		{
			name:    "text is url encoded",
			phone:   "01001234567",
			country: "20",
			text:    "fee due: 500 EGP & thanks",
		},
		{
			name:      "garbage phone rejected",
			phone:     "not-a-phone",
			country:   "20",
			text:      "x",
			expectErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			link, err := BuildWhatsAppLink(tc.phone, tc.country, tc.text)
			if tc.expectErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.expectURL != "" && link != tc.expectURL {
				t.Fatalf("expected %q, got %q", tc.expectURL, link)
			}
			if strings.ContainsAny(link[len("https://wa.me/"):], " &") && !strings.Contains(link, "%") {
				t.Fatalf("text not encoded: %q", link)
			}
		})
	}
}

func TestMessageTemplates(t *testing.T) {
	settings := models.AppSettings{CenterName: "Bright Minds"}
	student := models.Student{Name: "Salma", MonthlyFee: 400}

	absence := AbsenceMessage(settings, student, "2025-03-10")
	if !strings.Contains(absence, "Salma") || !strings.Contains(absence, "2025-03-10") {
		t.Fatalf("absence message missing fields: %q", absence)
	}

	reminder := PaymentReminder(settings, student, "2025-03")
	if !strings.Contains(reminder, "400") || !strings.Contains(reminder, "2025-03") {
		t.Fatalf("reminder missing fields: %q", reminder)
	}

	custom := models.AppSettings{CenterName: "Bright Minds", AbsenceMessage: "Note: %s missed class on %s."}
	if got := AbsenceMessage(custom, student, "2025-03-10"); got != "Note: Salma missed class on 2025-03-10." {
		t.Fatalf("custom template not applied: %q", got)
	}
}
