package seeders

import (
	"testing"

	"studenttrack_go/services/alerts"
)

func TestRuleDescriptionsCoverRegistry(t *testing.T) {
	for _, entry := range alerts.Registry() {
		if _, ok := ruleDescriptions[entry.Code]; !ok {
			t.Errorf("rule %s has no description", entry.Code)
		}
	}
	if len(ruleDescriptions) != len(alerts.Registry()) {
		t.Errorf("ruleDescriptions has %d entries, registry has %d", len(ruleDescriptions), len(alerts.Registry()))
	}
}
