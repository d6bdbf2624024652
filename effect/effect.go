// Package effect models a stateful transform descriptor (spec §6.3) and
// the effect table it plugs into (spec §3's "Effect slot"/"Effect
// table"). Individual effect algorithms are, per spec §1, an external
// library; this package carries the vtable contract plus the handful
// of default effects the planner can insert on its own (resample,
// mixer) and a couple of simple user-selectable ones (vol, trim, null)
// used to exercise and test the scheduler.
//
// Following the design note on function-pointer vtables, a Descriptor
// is a capability set of closures rather than an interface hierarchy:
// each slot absent from a descriptor substitutes a no-op, exactly as
// spec §6.3 describes.
package effect

import (
	"github.com/soxcore/sox/signal"
)

// Flag is a capability/behavior bit on a Descriptor.
type Flag int

const (
	FlagMChan      Flag = 1 << iota // handles interleaved multi-channel data itself
	FlagChan                        // changes channel count
	FlagRate                        // changes sample rate
	FlagLength                      // changes total duration; disables known-length reporting
	FlagNull                        // a proxy with no effect
	FlagDeprecated                  // present for compatibility only
)

// Has reports whether f carries all of want.
func (f Flag) Has(want Flag) bool { return f&want == want }

// StartFunc resolves ininfo to outinfo and performs any per-instance
// setup. Returning ErrNull signals the planner/start phase that this
// slot has no effect in this configuration and should be removed from
// the chain (spec §4.3 "start() failures").
type StartFunc func(in signal.Info) (out signal.Info, err error)

// FlowFunc consumes as much of in as it can and appends samples to out
// (out is the unused tail of the slot's buffer, i.e. len(out) is the
// available room). It returns how many input samples were consumed
// and how many output samples were produced; eof is true once this
// effect will produce no more data regardless of further input. clips
// is the effect's own clip counter, incremented directly the way the
// original increments e->clips through SOX_ROUND_CLIP_COUNT.
type FlowFunc func(in, out []float64, clips *uint64) (consumed, produced int, eof bool)

// DrainFunc asks an effect to emit any residual, buffered samples once
// its input is exhausted. Returns the same eof/clips convention as
// FlowFunc.
type DrainFunc func(out []float64, clips *uint64) (produced int, eof bool)

// Descriptor is a single effect's capability set. Only Name is
// required; Start/Flow/Drain/Stop/Kill default to no-ops matching the
// original's sox_effect_nothing* fallbacks.
type Descriptor struct {
	Name  string
	Flags Flag

	Start StartFunc
	Flow  FlowFunc
	Drain DrainFunc
	Stop  func() error
	Kill  func() error
}

// bind fills any nil function slot with its no-op default, so callers
// never need a nil check.
func (d Descriptor) bind() Descriptor {
	if d.Start == nil {
		d.Start = func(in signal.Info) (signal.Info, error) { return in, nil }
	}
	if d.Flow == nil {
		d.Flow = func(in, out []float64, clips *uint64) (int, int, bool) { return 0, 0, false }
	}
	if d.Drain == nil {
		d.Drain = func(out []float64, clips *uint64) (int, bool) { return 0, true }
	}
	if d.Stop == nil {
		d.Stop = func() error { return nil }
	}
	if d.Kill == nil {
		d.Kill = func() error { return nil }
	}
	return d
}

// New returns a bound copy of d with all nil slots replaced by no-ops.
// Builders of Descriptor literals should call this once before placing
// a Descriptor into a Slot.
func New(d Descriptor) Descriptor {
	return d.bind()
}

// Slot is one node of the effect table (spec §3's "Effect slot"). Slot
// 0 of a Table is the sentinel input slot: its Buf holds freshly
// combined samples and its cursors act as the producer cursor; it
// carries a zero Descriptor and is never started/stopped.
type Slot struct {
	Descriptor Descriptor
	InInfo     signal.Info
	OutInfo    signal.Info

	Buf   []float64 // capacity BufSize; holds produced-not-yet-consumed output
	OLen  int        // samples produced so far into Buf
	ODone int        // samples already consumed by the downstream slot

	Clips uint64

	// Right is the stereo-split twin for effects whose descriptor lacks
	// FlagMChan when the incoming stream is two-channel (spec §4.1's
	// "stereo-split path"; unlike the original's generic >1-channel
	// check, this package only splits exactly stereo, matching the L/R
	// de-interleave flowSplit/drainSplit actually implement). nil when
	// no split is needed.
	Right *Slot
}

// NewSlot allocates a slot with a buffer of the given capacity.
func NewSlot(d Descriptor, bufSize int) *Slot {
	return &Slot{Descriptor: d, Buf: make([]float64, bufSize)}
}

// Pending reports how many produced samples are still unconsumed.
func (s *Slot) Pending() int { return s.OLen - s.ODone }

// Room reports how much space remains in the slot's buffer for Flow to
// write into.
func (s *Slot) Room() int { return len(s.Buf) - s.OLen }

// Reset clears the cursors so the buffer can be reused, matching
// flow_effect_out's "if odone == olen, reset to zero" step. Only valid
// when Pending() == 0; callers must check that invariant themselves,
// matching the scheduler's own bookkeeping.
func (s *Slot) Reset() {
	s.OLen = 0
	s.ODone = 0
}

// Table is the ordered chain of slots built by the planner (spec §3's
// "Effect table"): slot 0 is the sentinel input, slots 1..n-1 are real
// effects. MaxSlots matches the original's MAX_EFF.
type Table struct {
	Slots   []*Slot
	BufSize int
}

// MaxSlots is the hard cap on chain length, matching MAX_EFF in the
// original (16 = input sentinel + up to 15 effects).
const MaxSlots = 16

// NewTable allocates a table with just the sentinel input slot.
func NewTable(bufSize int) *Table {
	t := &Table{BufSize: bufSize}
	t.Slots = []*Slot{NewSlot(Descriptor{}, bufSize)}
	return t
}

// Append adds a real effect slot to the end of the table, allocating
// its buffer. Callers that know the slot's resolved input channel
// count assign Right themselves once the slot is returned (spec §4.1's
// stereo-split path); Append has no visibility into that yet, so it
// never sets it. It returns an error if the table is already at
// MaxSlots.
func (t *Table) Append(d Descriptor) (*Slot, error) {
	if len(t.Slots) >= MaxSlots {
		return nil, ErrTableFull
	}
	s := NewSlot(New(d), t.BufSize)
	t.Slots = append(t.Slots, s)
	return s, nil
}

// Remove drops the slot at index i (i >= 1; slot 0 is never removed),
// shifting later slots down, matching start_all_effects' in-place
// removal of SOX_EFF_NULL slots.
func (t *Table) Remove(i int) {
	if i <= 0 || i >= len(t.Slots) {
		return
	}
	t.Slots = append(t.Slots[:i], t.Slots[i+1:]...)
}

// Len returns the number of slots, including the sentinel.
func (t *Table) Len() int { return len(t.Slots) }
