// Package aiff is a read-only format backend for AIFF files, built on
// github.com/go-audio/aiff. It demonstrates the multi-format surface
// implied by the `-t` filetype hint (spec §6.1); the teacher's go.mod
// carried go-audio/aiff only as an indirect dependency of go-audio/wav's
// module family — this backend promotes it to a direct, exercised one.
package aiff

import (
	"fmt"
	"io"
	"os"

	goaiff "github.com/go-audio/aiff"

	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/signal"
)

const backendName = "aiff"

// Backend implements format.Backend for AIFF files, read-only.
type Backend struct{}

// Name implements format.Backend.
func (Backend) Name() string { return backendName }

// Open implements format.Backend. Writing AIFF is not supported; the
// planner never needs to, since the output format is chosen by the
// caller and this module's default output backend is wav.
func (Backend) Open(filename string, hints signal.Info, mode format.Mode) (format.Handle, error) {
	if mode == format.ModeWrite {
		return nil, fmt.Errorf("aiff: write not supported by this backend")
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	dec := goaiff.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("aiff: %s: %w", filename, format.ErrFormat)
	}
	size := bitDepthToSize(int(dec.BitDepth))
	flat := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		flat[i] = signal.IntToFloat(v, size)
	}
	return &handle{
		file: f,
		data: flat,
		info: format.Info{
			Signal: signal.Info{
				Rate:     int(dec.SampleRate),
				Channels: int(dec.NumChans),
				Size:     size,
				Encoding: signal.EncodingSigned,
			},
			Length: int64(len(flat)),
		},
	}, nil
}

// handle serves reads from a fully decoded in-memory buffer: AIFF's
// PCM chunk has no efficient streaming reader in go-audio/aiff, so the
// whole file is decoded up front, like the original's non-streaming
// formats.
type handle struct {
	file *os.File
	data []float64
	pos  int
	info format.Info
}

func (h *handle) Info() format.Info { return h.info }

func (h *handle) Read(buf []float64) (int, error) {
	if h.pos >= len(h.data) {
		return 0, io.EOF
	}
	n := copy(buf, h.data[h.pos:])
	h.pos += n
	return n, nil
}

func (h *handle) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		h.pos = int(offset)
	case io.SeekCurrent:
		h.pos += int(offset)
	default:
		return 0, fmt.Errorf("aiff: unsupported seek whence %d", whence)
	}
	return int64(h.pos), nil
}

func (h *handle) Write([]float64) (int, error) {
	return 0, fmt.Errorf("aiff: handle opened for reading")
}

func (h *handle) Close() error { return h.file.Close() }

func bitDepthToSize(bitDepth int) signal.Size {
	switch bitDepth {
	case 8:
		return signal.Size8
	case 24:
		return signal.Size24
	case 32:
		return signal.Size32
	default:
		return signal.Size16
	}
}
