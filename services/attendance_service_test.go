package services

import (
	"testing"

	"studenttrack_go/models"
)

func TestDecideMark(t *testing.T) {
	present := &models.AttendanceRecord{Date: "2025-03-10", Present: true}
	absent := &models.AttendanceRecord{Date: "2025-03-10", Present: false}

	tests := []struct {
		name     string
		existing *models.AttendanceRecord
		present  bool
		expect   markAction
	}{
		{name: "no record inserts", existing: nil, present: true, expect: actionInsert},
		{name: "no record inserts absent", existing: nil, present: false, expect: actionInsert},
		{name: "rescan while present is duplicate", existing: present, present: true, expect: actionDuplicate},
		{name: "present to absent updates", existing: present, present: false, expect: actionUpdate},
		{name: "absent to present updates", existing: absent, present: true, expect: actionUpdate},
		{name: "reaffirming absent updates", existing: absent, present: false, expect: actionUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideMark(tt.existing, tt.present)
			if got != tt.expect {
				t.Errorf("decideMark() = %v, want %v", got, tt.expect)
			}
		})
	}
}
