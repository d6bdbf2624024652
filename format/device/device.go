// Package device is the format backend for the implicit input/output
// device that `play`/`rec` invocation forms append (spec §6.1), built on
// github.com/gordonklaus/portaudio and grounded in the teacher's
// portaudio/portaudio.go (which only had a playback Sink; this package
// adds the symmetric recording Source needed for `rec`).
package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/signal"
)

const backendName = "device"

const defaultBufferSize = 1024

// Backend implements format.Backend for the system's default audio
// device.
type Backend struct{}

// Name implements format.Backend.
func (Backend) Name() string { return backendName }

// Open implements format.Backend. filename is ignored; the default
// device is always used, matching the original's simple `play`/`rec`
// device handling.
func (Backend) Open(_ string, hints signal.Info, mode format.Mode) (format.Handle, error) {
	if !hints.RateSet() || !hints.ChannelsSet() {
		return nil, fmt.Errorf("device: rate and channels must be resolved before opening")
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	info := format.Info{
		Signal: hints,
		Flags:  format.FlagDevice | format.FlagNoStdio,
	}
	buf := make([]float32, defaultBufferSize*hints.Channels)
	var (
		stream *portaudio.Stream
		err    error
	)
	if mode == format.ModeWrite {
		stream, err = portaudio.OpenDefaultStream(0, hints.Channels, float64(hints.Rate), defaultBufferSize, &buf)
	} else {
		stream, err = portaudio.OpenDefaultStream(hints.Channels, 0, float64(hints.Rate), defaultBufferSize, &buf)
	}
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return &handle{stream: stream, buf: buf, info: info}, nil
}

// handle streams float32 PCAM frames to/from the default device through
// a fixed-size intermediate buffer, matching the chunking the original
// Sink used.
type handle struct {
	stream *portaudio.Stream
	buf    []float32
	info   format.Info
}

func (h *handle) Info() format.Info { return h.info }

func (h *handle) Read(buf []float64) (int, error) {
	n := len(buf)
	if n > len(h.buf) {
		n = len(h.buf)
	}
	if err := h.stream.Read(); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		buf[i] = float64(h.buf[i])
	}
	return n, nil
}

func (h *handle) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("device: seek not supported")
}

func (h *handle) Write(buf []float64) (int, error) {
	n := len(buf)
	if n > len(h.buf) {
		n = len(h.buf)
	}
	for i := 0; i < n; i++ {
		h.buf[i] = float32(buf[i])
	}
	if err := h.stream.Write(); err != nil {
		return 0, err
	}
	return n, nil
}

func (h *handle) Close() error {
	if err := h.stream.Stop(); err != nil {
		h.stream.Close()
		portaudio.Terminate()
		return err
	}
	if err := h.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	return portaudio.Terminate()
}
