// Package combine implements the driver's input combiner (spec §4.1):
// turning one or more per-input sample streams into the single wide-
// sample stream that feeds slot 0 of the effects chain. It is grounded
// on the teacher's mixer package (github.com/dudk/phono's mixer.go),
// generalized from a channel-based N:1 averaging stage into the four
// synchronous combine modes the driver needs.
package combine

import (
	"errors"
	"io"
	"math"

	"github.com/soxcore/sox/signal"
)

// Mode selects how multiple inputs are combined into one stream.
type Mode int

const (
	// Sequence reads only the current input; when it ends, the next
	// input is opened and must match the previous input's channel
	// count and rate, or the session terminates (spec §4.1).
	Sequence Mode = iota
	// Concatenate behaves like Sequence but requires every input to
	// share the same channel count, checked at plan time.
	Concatenate
	// Mix sums a tick from every input into combiner.channels output
	// channels, saturating-clipping the sum.
	Mix
	// Merge concatenates each input's channels into one wide sample,
	// silence-padding inputs that have already ended.
	Merge
)

// ErrMismatch is returned by sequence/concatenate mode when a
// subsequent input's channel count or rate does not match the first.
var ErrMismatch = errors.New("combine: input signal mismatch")

// CanSegue reports whether next can be appended to prev without
// reopening the effect chain in sequence mode (spec §4.8's driver
// loop re-entry condition), matching the original's can_segue check:
// channels and rate must match exactly.
func CanSegue(prev, next signal.Info) bool {
	return prev.Channels == next.Channels && prev.Rate == next.Rate
}

// Input is one source stream feeding the combiner: a reader of
// interleaved wide samples at its own channel count, plus the
// per-input volume/balance state described in spec §4.2.
type Input struct {
	Signal signal.Info
	Reader Reader

	// Volume is applied, then saturating-clipped, to every sample read
	// from this input before combining (spec §4.2). Zero means unset:
	// New replaces it with 1/len(inputs) in Mix mode and 1 in every
	// other mode. ReplayGain, when
	// non-zero, additionally scales Volume as 10^(gain/20); resolving
	// replay gain from file comments is the caller's job (SPEC_FULL
	// §12), this field just receives the already-resolved dB value.
	Volume     float64
	ReplayGain float64

	// Clips counts samples clipped by this input's volume scaling.
	Clips uint64

	done bool
}

// Reader is the minimal pull contract the combiner needs from an
// opened format.Handle: read up to len(buf) interleaved samples,
// returning io.EOF once exhausted.
type Reader interface {
	Read(buf []float64) (int, error)
}

// EffectiveVolume returns Volume scaled by ReplayGain, matching the
// `volume *= 10^(gain_dB/20)` rule in spec §4.2.
func (in *Input) EffectiveVolume() float64 {
	if in.ReplayGain == 0 {
		return in.Volume
	}
	return in.Volume * dbToLinear(in.ReplayGain)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Combiner produces the combined wide-sample stream described in
// spec §4.1 and tracks the authoritative signal.Info of slot 0's
// input, including mixing_clips.
type Combiner struct {
	Mode     Mode
	Inputs   []*Input
	Channels int
	Rate     int

	// MixingClips counts samples clipped while summing in Mix mode.
	MixingClips uint64

	current int // Sequence/Concatenate: index of the active input
	scratch [][]float64
}

// New validates the inputs for mode and returns a ready Combiner. The
// returned Combiner's Channels/Rate are the authoritative combiner
// signal described in spec §3's "Combiner state".
func New(mode Mode, inputs []*Input) (*Combiner, error) {
	if len(inputs) == 0 {
		return nil, errors.New("combine: no inputs")
	}
	c := &Combiner{Mode: mode, Inputs: inputs}
	switch mode {
	case Sequence, Concatenate:
		first := inputs[0].Signal
		c.Channels = first.Channels
		c.Rate = first.Rate
		// Concatenate requires every input to share channels and rate up
		// front, a rigid join. Sequence defers to nextSequential's lazy
		// segue check at the point it actually advances to the next
		// input, matching the original's can_segue-on-EOF behavior
		// instead of validating inputs it may never reach.
		if mode == Concatenate {
			for _, in := range inputs[1:] {
				if in.Signal.Channels != first.Channels || in.Signal.Rate != first.Rate {
					return nil, ErrMismatch
				}
			}
		}
	case Mix:
		maxCh := 0
		rate := inputs[0].Signal.Rate
		for _, in := range inputs {
			if in.Signal.Channels > maxCh {
				maxCh = in.Signal.Channels
			}
			if in.Signal.Rate != rate {
				return nil, ErrMismatch
			}
		}
		c.Channels = maxCh
		c.Rate = rate
		// Default input volume for mix mode, when the caller hasn't
		// already set one: 1/input_count, avoiding trivial overflow
		// (spec §4.1).
		for _, in := range inputs {
			if in.Volume == 0 {
				in.Volume = 1.0 / float64(len(inputs))
			}
		}
	case Merge:
		sum := 0
		rate := inputs[0].Signal.Rate
		for _, in := range inputs {
			sum += in.Signal.Channels
			if in.Signal.Rate != rate {
				return nil, ErrMismatch
			}
		}
		c.Channels = sum
		c.Rate = rate
	default:
		return nil, errors.New("combine: unknown mode")
	}
	// Any volume still unset is unity.
	for _, in := range inputs {
		if in.Volume == 0 {
			in.Volume = 1
		}
	}
	c.scratch = make([][]float64, len(inputs))
	return c, nil
}

// Next produces up to len(dst)/c.Channels wide samples into dst,
// returning the number of wide samples written. Zero with a nil error
// signals ordinary end of stream (spec §4.1's "produces 0 wide samples
// ... propagates as EOF"); io.EOF is also accepted from callers that
// prefer the conventional sentinel.
func (c *Combiner) Next(dst []float64) (int, error) {
	switch c.Mode {
	case Sequence, Concatenate:
		return c.nextSequential(dst)
	case Mix:
		return c.nextMix(dst)
	case Merge:
		return c.nextMerge(dst)
	}
	return 0, errors.New("combine: unknown mode")
}

func (c *Combiner) nextSequential(dst []float64) (int, error) {
	for c.current < len(c.Inputs) {
		in := c.Inputs[c.current]
		n, err := in.Reader.Read(dst)
		if n > 0 {
			applyVolume(dst[:n], in)
			return n / c.Channels, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		c.current++
		if c.current >= len(c.Inputs) {
			return 0, nil
		}
		next := c.Inputs[c.current]
		if next.Signal.Channels != c.Channels || next.Signal.Rate != c.Rate {
			return 0, ErrMismatch
		}
	}
	return 0, nil
}

func (c *Combiner) nextMix(dst []float64) (int, error) {
	wide := len(dst) / c.Channels
	if wide == 0 {
		return 0, nil
	}
	for i := range dst {
		dst[i] = 0
	}
	counts := make([]int, wide*c.Channels)
	anyData := false
	for idx, in := range c.Inputs {
		if in.done {
			continue
		}
		inCh := in.Signal.Channels
		buf := c.scratch[idx]
		need := wide * inCh
		if len(buf) < need {
			buf = make([]float64, need)
			c.scratch[idx] = buf
		}
		n, err := in.Reader.Read(buf[:need])
		if n > 0 {
			applyVolume(buf[:n], in)
			anyData = true
			inWide := n / inCh
			for w := 0; w < inWide; w++ {
				for s := 0; s < c.Channels && s < inCh; s++ {
					dst[w*c.Channels+s] += buf[w*inCh+s]
					counts[w*c.Channels+s]++
				}
			}
		}
		if err == io.EOF || n == 0 {
			in.done = true
		} else if err != nil {
			return 0, err
		}
	}
	if !anyData {
		return 0, nil
	}
	for i := range dst {
		if counts[i] == 0 {
			continue
		}
		v, clipped := signal.Clip(dst[i])
		if clipped {
			c.MixingClips++
		}
		dst[i] = v
	}
	return wide, nil
}

func (c *Combiner) nextMerge(dst []float64) (int, error) {
	wide := len(dst) / c.Channels
	if wide == 0 {
		return 0, nil
	}
	for i := range dst {
		dst[i] = 0
	}
	anyData := false
	offset := 0
	for idx, in := range c.Inputs {
		inCh := in.Signal.Channels
		if !in.done {
			buf := c.scratch[idx]
			need := wide * inCh
			if len(buf) < need {
				buf = make([]float64, need)
				c.scratch[idx] = buf
			}
			n, err := in.Reader.Read(buf[:need])
			if n > 0 {
				applyVolume(buf[:n], in)
				anyData = true
				inWide := n / inCh
				for w := 0; w < inWide; w++ {
					copy(dst[w*c.Channels+offset:w*c.Channels+offset+inCh], buf[w*inCh:w*inCh+inCh])
				}
			}
			if err == io.EOF || n == 0 {
				in.done = true
			} else if err != nil {
				return 0, err
			}
		}
		offset += inCh
	}
	if !anyData {
		return 0, nil
	}
	return wide, nil
}

func applyVolume(buf []float64, in *Input) {
	vol := in.EffectiveVolume()
	if vol == 1 {
		return
	}
	for i, v := range buf {
		c, clipped := signal.Clip(v * vol)
		if clipped {
			in.Clips++
		}
		buf[i] = c
	}
}
