package navigation

import (
	"math/rand"
	"testing"
)

func TestNavigatorBounds(t *testing.T) {
	n := New(3)

	if got := n.Previous(); got != 0 {
		t.Errorf("Previous() at first = %d, want 0", got)
	}
	n.Next()
	n.Next()
	if got := n.Next(); got != 2 {
		t.Errorf("Next() at last = %d, want 2", got)
	}
	if !n.IsLast() {
		t.Error("expected IsLast")
	}
	if got := n.GoTo(99); got != 2 {
		t.Errorf("GoTo(99) = %d, want 2", got)
	}
	if got := n.GoTo(-5); got != 0 {
		t.Errorf("GoTo(-5) = %d, want 0", got)
	}
	if !n.IsFirst() {
		t.Error("expected IsFirst")
	}
}

func TestNavigatorRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for total := 1; total <= 12; total++ {
		n := New(total)
		for step := 0; step < 500; step++ {
			switch rng.Intn(3) {
			case 0:
				n.Next()
			case 1:
				n.Previous()
			default:
				n.GoTo(rng.Intn(total*4) - total*2)
			}
			if n.Index() < 0 || n.Index() > total-1 {
				t.Fatalf("total=%d step=%d: index %d out of range", total, step, n.Index())
			}
		}
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		total int
		index int
		want  int
	}{
		{3, 0, 33},
		{3, 1, 67},
		{3, 2, 100},
		{8, 0, 13},
		{1, 0, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		n := New(tt.total)
		n.GoTo(tt.index)
		if got := n.ProgressPercent(); got != tt.want {
			t.Errorf("total=%d index=%d: ProgressPercent() = %d, want %d", tt.total, tt.index, got, tt.want)
		}
	}
}

func TestNavigatorEmpty(t *testing.T) {
	n := New(0)
	n.Next()
	n.GoTo(4)
	if n.Index() != 0 {
		t.Errorf("empty navigator index = %d, want 0", n.Index())
	}
}
