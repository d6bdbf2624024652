package combine_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/combine"
	"github.com/soxcore/sox/signal"
)

type sliceReader struct {
	data []float64
	pos  int
}

func (r *sliceReader) Read(buf []float64) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(buf, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestMixSumsAndClips(t *testing.T) {
	in1 := &combine.Input{
		Signal: signal.Info{Rate: 44100, Channels: 1},
		Reader: &sliceReader{data: []float64{0.2, 0.4, 0.6}},
		Volume: 1,
	}
	in2 := &combine.Input{
		Signal: signal.Info{Rate: 44100, Channels: 1},
		Reader: &sliceReader{data: []float64{0.2, 0.4, 0.6}},
		Volume: 1,
	}
	c, err := combine.New(combine.Mix, []*combine.Input{in1, in2})
	require.NoError(t, err)

	dst := make([]float64, 3)
	n, err := c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.InDeltaSlice(t, []float64{0.4, 0.8, 1.0}, dst, 1e-9)
	assert.Equal(t, uint64(1), c.MixingClips)
}

func TestMixDefaultVolumeDividesByInputCount(t *testing.T) {
	in1 := &combine.Input{Signal: signal.Info{Rate: 8000, Channels: 1}, Reader: &sliceReader{data: []float64{1}}}
	in2 := &combine.Input{Signal: signal.Info{Rate: 8000, Channels: 1}, Reader: &sliceReader{data: []float64{1}}}
	_, err := combine.New(combine.Mix, []*combine.Input{in1, in2})
	require.NoError(t, err)
	assert.Equal(t, 0.5, in1.Volume)
	assert.Equal(t, 0.5, in2.Volume)
}

func TestMergeConcatenatesChannels(t *testing.T) {
	in1 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 1},
		Reader: &sliceReader{data: []float64{0.1, 0.2}},
		Volume: 1,
	}
	in2 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 2},
		Reader: &sliceReader{data: []float64{0.3, 0.4, 0.5, 0.6}},
		Volume: 1,
	}
	c, err := combine.New(combine.Merge, []*combine.Input{in1, in2})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Channels)

	dst := make([]float64, 6)
	n, err := c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDeltaSlice(t, []float64{0.1, 0.3, 0.4, 0.2, 0.5, 0.6}, dst, 1e-9)
}

func TestMergePadsShorterInputWithSilence(t *testing.T) {
	in1 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 1},
		Reader: &sliceReader{data: []float64{0.1}},
		Volume: 1,
	}
	in2 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 1},
		Reader: &sliceReader{data: []float64{0.3, 0.4}},
		Volume: 1,
	}
	c, err := combine.New(combine.Merge, []*combine.Input{in1, in2})
	require.NoError(t, err)

	dst := make([]float64, 4)
	n, err := c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDeltaSlice(t, []float64{0.1, 0.3, 0, 0.4}, dst, 1e-9)
}

func TestSequenceAdvancesOnEOF(t *testing.T) {
	in1 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 1},
		Reader: &sliceReader{data: []float64{0.1, 0.2}},
		Volume: 1,
	}
	in2 := &combine.Input{
		Signal: signal.Info{Rate: 8000, Channels: 1},
		Reader: &sliceReader{data: []float64{0.3}},
		Volume: 1,
	}
	c, err := combine.New(combine.Sequence, []*combine.Input{in1, in2})
	require.NoError(t, err)

	dst := make([]float64, 4)
	n, err := c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Next(dst)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConcatenateRejectsChannelMismatch(t *testing.T) {
	in1 := &combine.Input{Signal: signal.Info{Rate: 8000, Channels: 1}, Reader: &sliceReader{}}
	in2 := &combine.Input{Signal: signal.Info{Rate: 8000, Channels: 2}, Reader: &sliceReader{}}
	_, err := combine.New(combine.Concatenate, []*combine.Input{in1, in2})
	assert.ErrorIs(t, err, combine.ErrMismatch)
}

func TestCanSegue(t *testing.T) {
	a := signal.Info{Rate: 44100, Channels: 2}
	b := signal.Info{Rate: 44100, Channels: 2}
	assert.True(t, combine.CanSegue(a, b))
	b.Channels = 1
	assert.False(t, combine.CanSegue(a, b))
}

func TestReplayGainScalesVolume(t *testing.T) {
	in := &combine.Input{Volume: 1, ReplayGain: 0}
	assert.Equal(t, 1.0, in.EffectiveVolume())
	in.ReplayGain = -20
	assert.InDelta(t, 0.1, in.EffectiveVolume(), 1e-9)
}
