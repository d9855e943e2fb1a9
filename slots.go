// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framepace

import "fmt"

// SlotRing is the per-slot completion bookkeeping of the frame-pacing
// protocol: a fixed ring of N frame-in-flight slots, each remembering the
// fence value its last use must reach before the slot's resources may be
// reused.
//
// The ring enforces strict round-robin use. Retiring any slot other than
// the current one is a programmer error and panics; it is not a recoverable
// runtime condition.
//
// SlotRing is NOT safe for concurrent use.
type SlotRing struct {
	// pending[i] is the fence value slot i's previous use must reach
	// before reuse. Zero means the slot has never been used.
	pending []uint64

	// current is the slot most recently returned by Advance, -1 initially.
	current int
}

// NewSlotRing creates a ring of n slots. n must be >= 1; typical render
// loops use 2 or 3.
func NewSlotRing(n int) *SlotRing {
	if n < 1 {
		panic(fmt.Sprintf("framepace: slot ring size must be >= 1, got %d", n))
	}
	return &SlotRing{
		pending: make([]uint64, n),
		current: -1,
	}
}

// Len returns the number of slots.
func (r *SlotRing) Len() int { return len(r.pending) }

// Current returns the slot most recently returned by Advance, or -1 if
// Advance has never been called.
func (r *SlotRing) Current() int { return r.current }

// Advance rotates to the next slot, (current+1) mod N, and returns it.
func (r *SlotRing) Advance() int {
	r.current = (r.current + 1) % len(r.pending)
	return r.current
}

// Pending returns the fence value the given slot's previous use must reach
// before the slot is safe to reuse. Zero means the slot carries no
// outstanding work.
func (r *SlotRing) Pending(slot int) uint64 {
	r.check(slot)
	return r.pending[slot]
}

// Retire records target as the slot's new outstanding fence value and
// returns the previous one for diagnostics. The slot must be the current
// slot, and target must be greater than the previous value (fence values
// are monotonic).
func (r *SlotRing) Retire(slot int, target uint64) uint64 {
	r.check(slot)
	if slot != r.current {
		panic(fmt.Sprintf("framepace: slot %d retired out of round-robin order (current slot is %d)",
			slot, r.current))
	}
	prev := r.pending[slot]
	if target <= prev {
		panic(fmt.Sprintf("framepace: slot %d retire target %d does not advance past %d",
			slot, target, prev))
	}
	r.pending[slot] = target
	return prev
}

func (r *SlotRing) check(slot int) {
	if slot < 0 || slot >= len(r.pending) {
		panic(fmt.Sprintf("framepace: slot index %d out of range [0,%d)", slot, len(r.pending)))
	}
}
