package framepace

import "testing"

func TestSlotRingRoundRobin(t *testing.T) {
	r := NewSlotRing(3)
	if r.Current() != -1 {
		t.Errorf("initial Current = %d, want -1", r.Current())
	}
	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		if got := r.Advance(); got != w {
			t.Errorf("Advance %d = %d, want %d", i, got, w)
		}
	}
}

func TestSlotRingRetire(t *testing.T) {
	r := NewSlotRing(2)

	slot := r.Advance()
	if p := r.Pending(slot); p != 0 {
		t.Errorf("fresh slot pending = %d, want 0", p)
	}
	if prev := r.Retire(slot, 1); prev != 0 {
		t.Errorf("Retire prev = %d, want 0", prev)
	}
	if p := r.Pending(slot); p != 1 {
		t.Errorf("pending after retire = %d, want 1", p)
	}

	slot = r.Advance()
	r.Retire(slot, 2)

	// Slot 0 comes around again with value 1 still outstanding.
	slot = r.Advance()
	if slot != 0 {
		t.Fatalf("third Advance = %d, want 0", slot)
	}
	if prev := r.Retire(slot, 3); prev != 1 {
		t.Errorf("Retire prev = %d, want 1", prev)
	}
}

func TestSlotRingSingleSlot(t *testing.T) {
	r := NewSlotRing(1)
	for i := uint64(1); i <= 3; i++ {
		if got := r.Advance(); got != 0 {
			t.Fatalf("Advance = %d, want 0", got)
		}
		r.Retire(0, i)
	}
	if p := r.Pending(0); p != 3 {
		t.Errorf("pending = %d, want 3", p)
	}
}

func TestSlotRingPanics(t *testing.T) {
	mustPanic := func(t *testing.T, name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}

	mustPanic(t, "NewSlotRing(0)", func() { NewSlotRing(0) })

	r := NewSlotRing(3)
	r.Advance()
	mustPanic(t, "Retire out of order", func() { r.Retire(1, 1) })
	mustPanic(t, "Retire out of range", func() { r.Retire(3, 1) })

	r.Retire(0, 5)
	r.Advance()
	r.Advance()
	r.Advance() // back to slot 0
	mustPanic(t, "Retire non-increasing", func() { r.Retire(0, 5) })
}
