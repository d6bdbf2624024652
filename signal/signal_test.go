package signal_test

import (
	"math"
	"testing"

	"github.com/soxcore/sox/signal"
	"github.com/stretchr/testify/assert"
)

func TestUnset(t *testing.T) {
	i := signal.Unset()
	assert.False(t, i.RateSet())
	assert.False(t, i.ChannelsSet())
	assert.False(t, i.CompressionSet())
	assert.Equal(t, signal.SizeUnset, i.Size)
	assert.Equal(t, signal.EncodingUnknown, i.Encoding)
}

func TestFill(t *testing.T) {
	src := signal.Info{Rate: 44100, Channels: 2, Size: signal.Size16, Encoding: signal.EncodingSigned}
	out := signal.Unset().Fill(src)
	assert.Equal(t, src.Rate, out.Rate)
	assert.Equal(t, src.Channels, out.Channels)
	assert.Equal(t, src.Size, out.Size)
	assert.Equal(t, src.Encoding, out.Encoding)

	// a field the caller already set is left alone.
	out2 := signal.Info{Rate: 8000, Compression: math.NaN()}.Fill(src)
	assert.Equal(t, 8000, out2.Rate)
	assert.Equal(t, src.Channels, out2.Channels)
}

func TestIntFloatRoundTrip(t *testing.T) {
	tests := []struct {
		size signal.Size
		max  int
	}{
		{signal.Size8, math.MaxInt8},
		{signal.Size16, math.MaxInt16},
		{signal.Size24, 1<<23 - 1},
		{signal.Size32, math.MaxInt32},
	}
	for _, tt := range tests {
		f := signal.IntToFloat(0, tt.size)
		assert.Zero(t, f)

		f = signal.IntToFloat(tt.max, tt.size)
		assert.InDelta(t, 1.0, f, 1e-9)

		back := signal.FloatToInt(f, tt.size)
		assert.Equal(t, tt.max, back)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in       float64
		want     float64
		wantClip bool
	}{
		{0.5, 0.5, false},
		{1.0, 1.0, false},
		{1.5, 1.0, true},
		{-1.5, -1.0, true},
	}
	for _, tt := range tests {
		got, clipped := signal.Clip(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wantClip, clipped)
	}
}

func TestWideLenAndFrame(t *testing.T) {
	buf := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, 3, signal.WideLen(buf, 2))
	assert.Equal(t, []float64{3, 4}, signal.Frame(buf, 2, 1))
}

func TestDurationOf(t *testing.T) {
	d := signal.DurationOf(44100, 44100)
	assert.Equal(t, int64(1e9), d.Nanoseconds())
	assert.Zero(t, signal.DurationOf(0, 100))
}
