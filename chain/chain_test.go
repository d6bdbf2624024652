package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/chain"
	"github.com/soxcore/sox/effect"
)

type recordingSink struct {
	written []float64
}

func (s *recordingSink) Write(buf []float64) (int, error) {
	s.written = append(s.written, buf...)
	return len(buf), nil
}

func TestFlowOutPassesThroughNullEffect(t *testing.T) {
	table := effect.NewTable(64)
	_, err := table.Append(effect.Null())
	require.NoError(t, err)

	table.Slots[0].Buf = make([]float64, 4)
	copy(table.Slots[0].Buf, []float64{0.1, 0.2, 0.3, 0.4})
	table.Slots[0].OLen = 4

	sink := &recordingSink{}
	sched := chain.NewScheduler(table, sink, 1)

	err = sched.FlowOut()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, sink.written)
	assert.EqualValues(t, 4, sched.OutputSamples)
}

func TestFlowOutScalesThroughVol(t *testing.T) {
	table := effect.NewTable(64)
	_, err := table.Append(effect.Vol(2))
	require.NoError(t, err)

	table.Slots[0].Buf = make([]float64, 2)
	copy(table.Slots[0].Buf, []float64{0.25, -0.25})
	table.Slots[0].OLen = 2

	sink := &recordingSink{}
	sched := chain.NewScheduler(table, sink, 1)

	err = sched.FlowOut()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5}, sink.written)
}

func TestFlowOutSplitsStereoThroughMonoOnlyEffect(t *testing.T) {
	table := effect.NewTable(64)
	left := effect.New(effect.Descriptor{
		Name: "double",
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			n := copy(out, in)
			for i := range out[:n] {
				out[i] *= 2
			}
			return n, n, false
		},
	})
	right := effect.New(effect.Descriptor{
		Name: "triple",
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			n := copy(out, in)
			for i := range out[:n] {
				out[i] *= 3
			}
			return n, n, false
		},
	})
	slot, err := table.Append(left)
	require.NoError(t, err)
	slot.Right = effect.NewSlot(right, table.BufSize)

	table.Slots[0].Buf = make([]float64, 4)
	copy(table.Slots[0].Buf, []float64{0.1, 0.2, 0.1, 0.2})
	table.Slots[0].OLen = 4

	sink := &recordingSink{}
	sched := chain.NewScheduler(table, sink, 2)

	err = sched.FlowOut()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.2, 0.6, 0.2, 0.6}, sink.written, 1e-9)
	assert.EqualValues(t, 2, sched.OutputSamples)
}

func TestFlowOutDeadlocksWhenEffectStalls(t *testing.T) {
	table := effect.NewTable(64)
	stall := effect.New(effect.Descriptor{
		Name: "stall",
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			return 0, 0, false
		},
	})
	_, err := table.Append(stall)
	require.NoError(t, err)

	table.Slots[0].Buf = make([]float64, 2)
	table.Slots[0].OLen = 2

	sink := &recordingSink{}
	sched := chain.NewScheduler(table, sink, 1)

	err = sched.FlowOut()
	assert.ErrorIs(t, err, chain.ErrDeadlock)
}
