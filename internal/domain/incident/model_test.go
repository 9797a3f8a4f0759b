package incident

import "testing"

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusAlerted, true},
		{StatusOpen, StatusAcknowledged, true},
		{StatusOpen, StatusResolved, true},
		{StatusAlerted, StatusAcknowledged, true},
		{StatusAlerted, StatusResolved, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAlerted, StatusOpen, false},
		{StatusAcknowledged, StatusAlerted, false},
		{StatusResolved, StatusOpen, false},
		{StatusResolved, StatusAcknowledged, false},
		{StatusOpen, StatusOpen, false},
		{StatusResolved, StatusResolved, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
