// Package plan builds the effects table described in spec §4.3,
// deciding which default rate/channel-changing effects must be
// inserted around the user's chosen effects. It is grounded on the
// teacher's run.go/pipe.go line-assembly pattern (ordered component
// list built up by successive appends before Bind/Run), generalized
// from DSP-line wiring to the cost-optimal insertion rule the original
// driver's build_effects_table implements.
package plan

import (
	"errors"

	"github.com/soxcore/sox/effect"
	"github.com/soxcore/sox/signal"
)

// ErrMultipleChannelEffects is returned when more than one user effect
// carries effect.FlagChan; the original reports this as fatal.
var ErrMultipleChannelEffects = errors.New("plan: more than one user effect changes channel count")

// Build runs the planner algorithm from spec §4.3 and returns the
// ordered list of descriptors to append to an effect.Table, starting
// from combiner's signal and ending at output.
func Build(combiner, output signal.Info, userEffects []effect.Descriptor) ([]effect.Descriptor, error) {
	needRate := combiner.Rate != output.Rate
	needChan := combiner.Channels != output.Channels

	chanEffects := 0
	for _, e := range userEffects {
		if e.Flags.Has(effect.FlagChan) {
			needChan = false
			chanEffects++
		}
		if e.Flags.Has(effect.FlagRate) {
			needRate = false
		}
	}
	if chanEffects > 1 {
		return nil, ErrMultipleChannelEffects
	}

	var plan []effect.Descriptor

	if needChan && combiner.Channels > output.Channels {
		plan = append(plan, effect.DefaultChannels(combiner.Channels, output.Channels))
		needChan = false
	}
	if needRate && combiner.Rate > output.Rate {
		plan = append(plan, effect.DefaultResample(combiner.Rate, output.Rate, minChannels(combiner, output)))
		needRate = false
	}

	plan = append(plan, userEffects...)

	if needRate {
		plan = append(plan, effect.DefaultResample(combiner.Rate, output.Rate, output.Channels))
	}
	if needChan {
		plan = append(plan, effect.DefaultChannels(combiner.Channels, output.Channels))
	}
	return plan, nil
}

func minChannels(a, b signal.Info) int {
	if a.Channels < b.Channels {
		return a.Channels
	}
	return b.Channels
}

// KnownLength reports whether the chain's total output length stays
// predictable (spec §4.4's "known-length propagation"): false as soon
// as any planned effect carries FlagLength.
func KnownLength(plan []effect.Descriptor) bool {
	for _, e := range plan {
		if e.Flags.Has(effect.FlagLength) {
			return false
		}
	}
	return true
}
