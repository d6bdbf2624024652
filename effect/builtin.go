package effect

import (
	"github.com/soxcore/sox/signal"
)

// Null returns a proxy effect that passes samples through unchanged.
// It carries FlagNull, so the planner/start phase removes it from the
// chain entirely (spec §4.3), matching the original's "is a proxy
// effect" report.
func Null() Descriptor {
	return New(Descriptor{
		Name:  "null",
		Flags: FlagNull | FlagMChan,
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			n := copy(out, in)
			return n, n, false
		},
	})
}

// Vol is a user-selectable volume-scaling effect: multiply every
// sample by factor and saturating-clip, the same operation the
// combiner's per-input balance stage performs (spec §4.2), but
// available as a chain effect.
func Vol(factor float64) Descriptor {
	return New(Descriptor{
		Name:  "vol",
		Flags: FlagMChan,
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			n := len(in)
			if n > len(out) {
				n = len(out)
			}
			for i := 0; i < n; i++ {
				v, clipped := signal.Clip(in[i] * factor)
				if clipped {
					*clips++
				}
				out[i] = v
			}
			return n, n, false
		},
	})
}

// Trim drops the first skipWide wide samples, then passes through the
// next lengthWide wide samples (0 = unlimited), reporting EOF once that
// many have been emitted. It carries FlagLength because it changes the
// total stream duration. The optimize-trim hook (spec §4.8, boundary
// scenario 4) converts skipWide to 0 via ClearSkip once the driver loop
// has performed an equivalent seek on a seekable input.
func Trim(channels int, skipWide, lengthWide int) *TrimEffect {
	t := &TrimEffect{channels: channels, skipWide: skipWide, lengthWide: lengthWide}
	return t
}

// TrimEffect is the stateful instance returned by Trim; its Descriptor
// method produces the bound Descriptor, and ClearSkip implements the
// seek-optimization hook.
type TrimEffect struct {
	channels             int
	skipWide, lengthWide int
	skippedWide          int
	emittedWide          int
}

// ClearSkip zeroes the remaining skip, used once the driver loop has
// already seeked the input past skipWide wide samples (spec §4.8).
func (t *TrimEffect) ClearSkip() { t.skipWide = 0; t.skippedWide = 0 }

// SkipWide returns the number of leading wide samples this trim is
// configured to skip (0 once ClearSkip has run), regardless of how many
// it has already dropped; the optimize-trim hook uses it to compute a
// seek offset from the start of the input before clearing it.
func (t *TrimEffect) SkipWide() int { return t.skipWide }

// Descriptor returns the bound effect.Descriptor for this trim
// instance.
func (t *TrimEffect) Descriptor() Descriptor {
	return New(Descriptor{
		Name:  "trim",
		Flags: FlagLength | FlagMChan,
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			ch := t.channels
			if ch <= 0 {
				ch = 1
			}
			inWide := len(in) / ch
			consumedWide := 0

			// still skipping: drop whole wide samples without producing.
			for consumedWide < inWide && t.skippedWide < t.skipWide {
				consumedWide++
				t.skippedWide++
			}
			remainIn := inWide - consumedWide
			if remainIn == 0 {
				return consumedWide * ch, 0, false
			}

			room := len(out) / ch
			passWide := remainIn
			if passWide > room {
				passWide = room
			}
			if t.lengthWide > 0 {
				left := t.lengthWide - t.emittedWide
				if left <= 0 {
					return consumedWide * ch, 0, true
				}
				if passWide > left {
					passWide = left
				}
			}
			n := copy(out, in[consumedWide*ch:consumedWide*ch+passWide*ch])
			consumedWide += passWide
			t.emittedWide += passWide
			eof := t.lengthWide > 0 && t.emittedWide >= t.lengthWide
			return consumedWide * ch, n, eof
		},
	})
}

// DefaultResample returns the planner's default rate-changing effect
// (spec §4.3's "prepend/append a default resampler"). It performs a
// simple linear interpolation; real resampling algorithm design is out
// of scope (spec §1 Non-goals) — this exists to give the planner and
// scheduler something concrete to insert and run.
func DefaultResample(inRate, outRate, channels int) Descriptor {
	if inRate <= 0 || outRate <= 0 || channels <= 0 {
		return New(Descriptor{Name: "resample", Flags: FlagRate | FlagMChan})
	}
	ratio := float64(inRate) / float64(outRate)
	state := &resampleState{
		ratio:    ratio,
		channels: channels,
		pos:      0,
		history:  make([]float64, channels),
	}
	return New(Descriptor{
		Name:  "resample",
		Flags: FlagRate | FlagMChan,
		Flow:  state.flow,
	})
}

type resampleState struct {
	ratio    float64
	channels int
	pos      float64 // fractional input-wide-sample position of next output
	history  []float64
	primed   bool
}

func (s *resampleState) flow(in, out []float64, clips *uint64) (int, int, bool) {
	ch := s.channels
	inWide := len(in) / ch
	if inWide == 0 {
		return 0, 0, false
	}
	outRoom := len(out) / ch
	produced := 0
	for produced < outRoom {
		idx := int(s.pos)
		if idx+1 >= inWide {
			break
		}
		frac := s.pos - float64(idx)
		for c := 0; c < ch; c++ {
			a := in[idx*ch+c]
			b := in[(idx+1)*ch+c]
			out[produced*ch+c] = a + (b-a)*frac
		}
		produced++
		s.pos += s.ratio
	}
	consumedWide := int(s.pos)
	if consumedWide > inWide-1 {
		consumedWide = inWide - 1
	}
	if consumedWide < 0 {
		consumedWide = 0
	}
	s.pos -= float64(consumedWide)
	return consumedWide * ch, produced * ch, false
}

// DefaultChannels returns the planner's default channel-count-changing
// effect (spec §4.3's "default channel mixer"). Reducing channels
// averages the extra inputs into the kept ones; increasing channels
// duplicates existing channels round-robin. Real mixing-matrix design
// is out of scope (spec §1 Non-goals).
func DefaultChannels(inChannels, outChannels int) Descriptor {
	return New(Descriptor{
		Name:  "channels",
		Flags: FlagChan | FlagMChan,
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			if inChannels <= 0 || outChannels <= 0 {
				return 0, 0, false
			}
			inWide := len(in) / inChannels
			outRoom := len(out) / outChannels
			wide := inWide
			if wide > outRoom {
				wide = outRoom
			}
			for w := 0; w < wide; w++ {
				inFrame := in[w*inChannels : w*inChannels+inChannels]
				outFrame := out[w*outChannels : w*outChannels+outChannels]
				remapChannels(inFrame, outFrame, clips)
			}
			return wide * inChannels, wide * outChannels, false
		},
	})
}

func remapChannels(in, out []float64, clips *uint64) {
	inChannels, outChannels := len(in), len(out)
	if outChannels < inChannels {
		// downmix: distribute input channels evenly across the smaller
		// output set and average each group.
		for o := 0; o < outChannels; o++ {
			lo := o * inChannels / outChannels
			hi := (o + 1) * inChannels / outChannels
			if hi <= lo {
				hi = lo + 1
			}
			var sum float64
			for i := lo; i < hi && i < inChannels; i++ {
				sum += in[i]
			}
			v, clipped := signal.Clip(sum / float64(hi-lo))
			if clipped {
				*clips++
			}
			out[o] = v
		}
		return
	}
	// upmix: cycle through the available input channels.
	for o := 0; o < outChannels; o++ {
		out[o] = in[o%inChannels]
	}
}
