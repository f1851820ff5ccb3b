package orchestrator

import "testing"

func TestHumanTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00.00"},
		{-3, "0:00.00"},
		{5.5, "0:05.50"},
		{59.999, "1:00.00"},
		{125.25, "2:05.25"},
		{3725.5, "1:02:05.50"},
	}
	for _, tt := range tests {
		if got := HumanTime(tt.in); got != tt.want {
			t.Errorf("HumanTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
