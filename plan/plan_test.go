package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/effect"
	"github.com/soxcore/sox/plan"
	"github.com/soxcore/sox/signal"
)

func TestBuildInsertsDefaultsWhenNoUserEffects(t *testing.T) {
	combiner := signal.Info{Rate: 44100, Channels: 2}
	output := signal.Info{Rate: 22050, Channels: 1}

	got, err := plan.Build(combiner, output, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "channels", got[0].Name)
	assert.Equal(t, "resample", got[1].Name)
}

func TestBuildAppendsDefaultsWhenIncreasing(t *testing.T) {
	combiner := signal.Info{Rate: 22050, Channels: 1}
	output := signal.Info{Rate: 44100, Channels: 2}

	got, err := plan.Build(combiner, output, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "resample", got[0].Name)
	assert.Equal(t, "channels", got[1].Name)
}

func TestBuildSkipsDefaultRateWhenUserEffectHandlesIt(t *testing.T) {
	combiner := signal.Info{Rate: 44100, Channels: 1}
	output := signal.Info{Rate: 22050, Channels: 1}
	userRate := effect.New(effect.Descriptor{Name: "speed", Flags: effect.FlagRate})

	got, err := plan.Build(combiner, output, []effect.Descriptor{userRate})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "speed", got[0].Name)
}

func TestBuildRejectsMultipleChannelEffects(t *testing.T) {
	combiner := signal.Info{Rate: 44100, Channels: 2}
	output := signal.Info{Rate: 44100, Channels: 2}
	a := effect.New(effect.Descriptor{Name: "remix", Flags: effect.FlagChan})
	b := effect.New(effect.Descriptor{Name: "channels", Flags: effect.FlagChan})

	_, err := plan.Build(combiner, output, []effect.Descriptor{a, b})
	assert.ErrorIs(t, err, plan.ErrMultipleChannelEffects)
}

func TestKnownLengthFalseWhenAnyEffectChangesLength(t *testing.T) {
	trim := effect.New(effect.Descriptor{Name: "trim", Flags: effect.FlagLength})
	vol := effect.New(effect.Descriptor{Name: "vol"})
	assert.False(t, plan.KnownLength([]effect.Descriptor{trim, vol}))
	assert.True(t, plan.KnownLength([]effect.Descriptor{vol}))
}
