// Package chain implements the pull-based effects scheduler from
// spec §4.4: flow_out drives data backwards through an effect.Table,
// slot by slot, using each slot's (odone, olen) cursor pair instead of
// a queue. It is grounded on the teacher's run.go LineRunner.execute,
// which propagates io.EOF through a sequence of components in a single
// goroutine — the same "keep calling until EOF, then flush" shape,
// generalized here from a linear forward push to the original's
// backward pull.
package chain

import (
	"errors"
	"io"

	"github.com/soxcore/sox/effect"
)

// Sink is the minimal contract the scheduler needs from the format
// layer's write call (spec §4.5): write up to len(buf) interleaved
// samples, retrying partial writes is the caller's (sink writer's)
// job, not the scheduler's.
type Sink interface {
	Write(buf []float64) (int, error)
}

// Scheduler runs an effect.Table's flow/drain cycle against a Sink,
// tracking input_eff/input_eff_eof as described in spec §4.4.
type Scheduler struct {
	Table         *effect.Table
	Sink          Sink
	Channels      int   // output channel count, for output_samples accounting
	OutputSamples int64 // wide samples written to Sink so far (spec §4.4 step 2: bytes_written / output.channels)

	inputEff    int
	inputEffEOF bool
}

// NewScheduler returns a scheduler over table writing to sink, whose
// Write calls carry channels-wide interleaved frames.
func NewScheduler(table *effect.Table, sink Sink, channels int) *Scheduler {
	if channels < 1 {
		channels = 1
	}
	return &Scheduler{Table: table, Sink: sink, Channels: channels}
}

// ErrDeadlock re-exports effect.ErrDeadlock for callers that only
// import this package.
var ErrDeadlock = effect.ErrDeadlock

// ErrSinkWrite is returned when the sink reports a zero-sample write
// (a short write only advances the cursor and is retried on a later pass),
// matching spec §4.5's "on write=0 ... return EOF" as a scheduler-level
// fatal condition surfaced to the driver loop.
var ErrSinkWrite = errors.New("chain: sink write failed")

// FlowOut runs the main scheduler step from spec §4.4. It returns
// io.EOF once input_eff has advanced past the producer slot (slot 0)
// and there is nothing left anywhere in the table to drain.
func (s *Scheduler) FlowOut() error {
	slots := s.Table.Slots
	n := len(slots)

	for {
		progressed := false
		lo := s.inputEff
		if lo < 1 {
			lo = 1
		}
		for e := n - 1; e >= lo; e-- {
			if e == s.inputEff && s.inputEffEOF {
				continue
			}
			pred := slots[e-1]
			if pred.ODone >= pred.OLen {
				continue
			}
			eof, err := s.flow(e)
			if err != nil {
				return err
			}
			progressed = true
			if eof {
				s.inputEff = e
				s.inputEffEOF = false
			}
			if slots[e].Pending() > 0 {
				break
			}
		}

		if last := slots[n-1]; last.Pending() > 0 {
			if err := s.writeOut(last); err != nil {
				return err
			}
		}

		for _, sl := range slots {
			if sl.ODone == sl.OLen {
				sl.Reset()
			}
		}

		if s.haveData() {
			if progressed {
				continue
			}
			return nil
		}

		if s.inputEff > 0 {
			produced, eof := s.drain(s.inputEff)
			if produced == 0 {
				s.inputEff++
				if s.inputEff >= n {
					return io.EOF
				}
				continue
			}
			s.inputEffEOF = eof
			continue
		}

		return nil
	}
}

// haveData reports whether any slot from input_eff to the end still
// holds unconsumed samples. Any pending sample counts, whether or not
// it completes an output frame, so residual partial frames keep the
// loop alive until they drain.
func (s *Scheduler) haveData() bool {
	for _, sl := range s.Table.Slots[s.inputEff:] {
		if sl.Pending() > 0 {
			return true
		}
	}
	return false
}

// flow runs one slot's Flow (or its stereo-split variant), enforcing
// the single-effect contract from spec §4.4: idone available is the
// predecessor's unconsumed span, odone available is the slot's free
// buffer tail.
func (s *Scheduler) flow(e int) (eof bool, err error) {
	slot := s.Table.Slots[e]
	pred := s.Table.Slots[e-1]

	in := pred.Buf[pred.ODone:pred.OLen]
	out := slot.Buf[slot.OLen:]

	var consumed, produced int
	if slot.Right != nil {
		consumed, produced, eof = flowSplit(slot, in, out)
	} else {
		consumed, produced, eof = slot.Descriptor.Flow(in, out, &slot.Clips)
	}

	if consumed == 0 && produced == 0 && !eof {
		return false, ErrDeadlock
	}

	pred.ODone += consumed
	slot.OLen += produced
	return eof, nil
}

// drain asks slot e to emit residual buffered samples once its input
// is exhausted (spec §4.4 step 5's drain mode).
func (s *Scheduler) drain(e int) (produced int, eof bool) {
	slot := s.Table.Slots[e]
	out := slot.Buf[slot.OLen:]
	if slot.Right != nil {
		return drainSplit(slot, out)
	}
	produced, eof = slot.Descriptor.Drain(out, &slot.Clips)
	slot.OLen += produced
	return produced, eof
}

func (s *Scheduler) writeOut(last *effect.Slot) error {
	pending := last.Buf[last.ODone:last.OLen]
	n, err := s.Sink.Write(pending)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSinkWrite
	}
	last.ODone += n
	s.OutputSamples += int64(n) / int64(s.Channels)
	return nil
}

// flowSplit implements spec §4.4's stereo-split variant: de-interleave
// the predecessor's pending two-channel span into independent left and
// right halves, run each side's Flow independently, then re-interleave
// into slot's buffer. EOF is reported iff either side reports EOF.
func flowSplit(slot *effect.Slot, in, out []float64) (consumed, produced int, eof bool) {
	wide := len(in) / 2
	left := make([]float64, wide)
	right := make([]float64, wide)
	for i := 0; i < wide; i++ {
		left[i] = in[i*2]
		right[i] = in[i*2+1]
	}
	leftOut := make([]float64, len(out)/2)
	rightOut := make([]float64, len(out)/2)

	lc, lp, leof := slot.Descriptor.Flow(left, leftOut, &slot.Clips)
	rc, rp, reof := slot.Right.Descriptor.Flow(right, rightOut, &slot.Right.Clips)

	produced = lp
	if rp < produced {
		produced = rp
	}
	for i := 0; i < produced; i++ {
		out[i*2] = leftOut[i]
		out[i*2+1] = rightOut[i]
	}
	consumed = lc
	if rc < consumed {
		consumed = rc
	}
	consumed *= 2
	return consumed, produced * 2, leof || reof
}

func drainSplit(slot *effect.Slot, out []float64) (produced int, eof bool) {
	leftOut := make([]float64, len(out)/2)
	rightOut := make([]float64, len(out)/2)
	lp, leof := slot.Descriptor.Drain(leftOut, &slot.Clips)
	rp, reof := slot.Right.Descriptor.Drain(rightOut, &slot.Right.Clips)
	produced = lp
	if rp < produced {
		produced = rp
	}
	for i := 0; i < produced; i++ {
		out[i*2] = leftOut[i]
		out[i*2+1] = rightOut[i]
	}
	slot.OLen += produced * 2
	return produced * 2, leof || reof
}
