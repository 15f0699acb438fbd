package engine

import "testing"

func TestAssessBatteryRisk(t *testing.T) {
	tests := []struct {
		name            string
		battery         int
		costToRecharger int
		expected        string
	}{
		{"empty battery", 0, 3, "CRITICAL: Battery empty!"},
		{"negative battery", -5, 3, "CRITICAL: Battery empty!"},
		{"recharger cut off", 40, UnreachableCost, "WARNING: Recharger unreachable!"},
		{"cannot make it back", 5, 8, "DANGER: Insufficient battery to reach the recharger!"},
		{"exactly the path cost", 8, 8, "DANGER: Insufficient battery to reach the recharger!"},
		{"inside the caution band", 12, 8, "CAUTION: Low battery, consider recharging"},
		{"top of the caution band", 13, 8, "CAUTION: Low battery, consider recharging"},
		{"comfortable margin", 14, 8, "SAFE: Battery sufficient"},
		{"full battery", 70, 3, "SAFE: Battery sufficient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessBatteryRisk(tt.battery, tt.costToRecharger)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
