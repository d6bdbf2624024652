package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/combine"
	"github.com/soxcore/sox/effect"
	"github.com/soxcore/sox/file"
	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/format/memfmt"
	"github.com/soxcore/sox/session"
	"github.com/soxcore/sox/signal"
)

func newBackends(mem *memfmt.Backend) *format.Registry {
	r := format.NewRegistry()
	r.Register(mem, "mem")
	return r
}

func TestNewAppliesOptions(t *testing.T) {
	backends := newBackends(memfmt.NewBackend())
	s := session.New(backends,
		session.BufferSize(4),
		session.Combine(combine.Mix),
		session.Comment("hello"),
		session.Verbosity(2),
		session.Speed(2),
		session.Progress(false),
	)
	require.NotNil(t, s)
	assert.NotEqual(t, session.New(backends).ID, s.ID, "each session gets a fresh id")
}

func TestRunCopiesSingleInputToOutput(t *testing.T) {
	mem := memfmt.NewBackend()
	backends := newBackends(mem)

	src := &memfmt.File{
		Info: format.Info{Signal: signal.Info{Rate: 8000, Channels: 1}},
		Data: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
	}
	mem.Put("in.mem", src)

	s := session.New(backends, session.BufferSize(17), session.Progress(false))

	in := file.NewEntry("in.mem", "mem")
	in.Signal = signal.Info{Rate: 8000, Channels: 1}
	require.NoError(t, s.Registry.AddInput(in))

	out := file.NewEntry("out.mem", "mem")
	s.Registry.SetOutput(out)

	require.NoError(t, s.Run(&session.Context{}))

	written := mem.Get("out.mem")
	require.NotNil(t, written)
	assert.Equal(t, src.Data, written.Data)
}

func TestRunAppliesVolEffect(t *testing.T) {
	mem := memfmt.NewBackend()
	backends := newBackends(mem)

	src := &memfmt.File{
		Info: format.Info{Signal: signal.Info{Rate: 8000, Channels: 1}},
		Data: []float64{0.1, 0.2, 0.3},
	}
	mem.Put("in.mem", src)

	s := session.New(backends, session.BufferSize(17), session.Progress(false))
	s.Effects = []effect.Descriptor{effect.Vol(2)}

	in := file.NewEntry("in.mem", "mem")
	in.Signal = signal.Info{Rate: 8000, Channels: 1}
	require.NoError(t, s.Registry.AddInput(in))

	out := file.NewEntry("out.mem", "mem")
	s.Registry.SetOutput(out)

	require.NoError(t, s.Run(&session.Context{}))

	written := mem.Get("out.mem")
	require.NotNil(t, written)
	require.Len(t, written.Data, len(src.Data))
	for i, v := range src.Data {
		assert.InDelta(t, v*2, written.Data[i], 1e-9)
	}
}

func TestRunSplitsStereoThroughMonoOnlyEffect(t *testing.T) {
	mem := memfmt.NewBackend()
	backends := newBackends(mem)

	src := &memfmt.File{
		Info: format.Info{Signal: signal.Info{Rate: 8000, Channels: 2}},
		Data: []float64{1, 1, 1, 1},
	}
	mem.Put("in.mem", src)

	s := session.New(backends, session.BufferSize(17), session.Progress(false))

	// counter stamps each sample it sees with an incrementing value and
	// carries no FlagMChan, so session.Run must give it a stereo-split
	// twin sharing this same closure. If the whole interleaved buffer
	// were flowed through unsplit, the stamps would read 0,1,2,3 in
	// interleaved order; split into independent L/R halves (left fully
	// flowed, then right), they read 0,2,1,3 once re-interleaved.
	counter := 0
	s.Effects = []effect.Descriptor{effect.New(effect.Descriptor{
		Name: "counter",
		Flow: func(in, out []float64, clips *uint64) (int, int, bool) {
			n := len(in)
			if n > len(out) {
				n = len(out)
			}
			for i := 0; i < n; i++ {
				out[i] = float64(counter)
				counter++
			}
			return n, n, false
		},
	})}

	in := file.NewEntry("in.mem", "mem")
	in.Signal = signal.Info{Rate: 8000, Channels: 2}
	require.NoError(t, s.Registry.AddInput(in))

	out := file.NewEntry("out.mem", "mem")
	s.Registry.SetOutput(out)

	require.NoError(t, s.Run(&session.Context{}))

	written := mem.Get("out.mem")
	require.NotNil(t, written)
	assert.Equal(t, []float64{0, 2, 1, 3}, written.Data)
}

func TestRunReturnsErrNoInputs(t *testing.T) {
	backends := newBackends(memfmt.NewBackend())
	s := session.New(backends, session.Progress(false))
	err := s.Run(&session.Context{})
	assert.ErrorIs(t, err, session.ErrNoInputs)
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	backends := newBackends(memfmt.NewBackend())
	s := session.New(backends, session.Progress(false))

	in := file.NewEntry("in.wav", "wav")
	in.Signal = signal.Info{Rate: 8000, Channels: 1}
	require.NoError(t, s.Registry.AddInput(in))
	s.Registry.SetOutput(file.NewEntry("out.wav", "wav"))

	err := s.Run(&session.Context{})
	assert.Error(t, err)
}
