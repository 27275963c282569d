package spl

import "testing"

func TestHighXRestoresLevel(t *testing.T) {
	mu.Lock()
	level = 0
	mu.Unlock()

	old := High()
	if old != 0 {
		t.Fatalf("first High() old = %d, want 0", old)
	}
	X(old)

	mu.Lock()
	got := level
	mu.Unlock()
	if got != 0 {
		t.Errorf("level after X = %d, want 0", got)
	}
}

func TestNestedHighX(t *testing.T) {
	mu.Lock()
	level = 0
	mu.Unlock()

	o1 := High()
	o2 := High()
	X(o2)
	X(o1)

	mu.Lock()
	got := level
	mu.Unlock()
	if got != 0 {
		t.Errorf("level after nested High/X = %d, want 0", got)
	}
}
