package claim

import "testing"

func TestMin(t *testing.T) {
	tests := []struct {
		a, b, want Level
	}{
		{Denied, Denied, Denied},
		{Denied, 3, Denied},
		{3, Denied, Denied},
		{1, 3, 1},
		{3, 1, 1},
		{2, 2, 2},
	}
	for _, tt := range tests {
		if got := Min(tt.a, tt.b); got != tt.want {
			t.Errorf("Min(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevelPredicates(t *testing.T) {
	if Denied.IsGranted() {
		t.Error("Denied must not be granted")
	}
	if !Denied.IsDenied() {
		t.Error("Denied must be denied")
	}
	if !Level(1).IsGranted() {
		t.Error("level 1 must be granted")
	}
	if Level(5).IsDenied() {
		t.Error("level 5 must not be denied")
	}
}

func TestLevelString(t *testing.T) {
	if Denied.String() != "denied" {
		t.Errorf("unexpected string for Denied: %q", Denied.String())
	}
	if Level(2).String() != "level(2)" {
		t.Errorf("unexpected string for level 2: %q", Level(2).String())
	}
}
