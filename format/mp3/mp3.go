// Package mp3 is a format backend for MP3: decoding via
// github.com/hajimehoshi/go-mp3 and encoding via github.com/viert/lame,
// grounded in the teacher's mp3/pump.go and mp3/sink.go.
package mp3

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/viert/lame"

	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/signal"
)

const backendName = "mp3"

const defaultBitRate = 192

// Backend implements format.Backend for MP3 files.
type Backend struct{}

// Name implements format.Backend.
func (Backend) Name() string { return backendName }

// Open implements format.Backend.
func (Backend) Open(filename string, hints signal.Info, mode format.Mode) (format.Handle, error) {
	if mode == format.ModeWrite {
		return openWrite(filename, hints)
	}
	return openRead(filename)
}

type readHandle struct {
	file    *os.File
	decoder *gomp3.Decoder
	info    format.Info
	scratch []byte
}

func openRead(filename string) (format.Handle, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mp3: %s: %w", filename, format.ErrFormat)
	}
	return &readHandle{
		file:    f,
		decoder: dec,
		info: format.Info{
			Signal: signal.Info{
				Rate:     dec.SampleRate(),
				Channels: 2, // go-mp3 always decodes to interleaved stereo
				Size:     signal.Size16,
				Encoding: signal.EncodingSigned,
			},
			Length: dec.Length() / 2, // bytes -> samples (16-bit stereo)
		},
	}, nil
}

func (h *readHandle) Info() format.Info { return h.info }

func (h *readHandle) Read(buf []float64) (int, error) {
	need := len(buf) * 2 // 16-bit samples
	if cap(h.scratch) < need {
		h.scratch = make([]byte, need)
	}
	raw := h.scratch[:need]
	n, err := io.ReadFull(h.decoder, raw)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(raw[2*i]) | int16(raw[2*i+1])<<8
		buf[i] = signal.IntToFloat(int(v), signal.Size16)
	}
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return samples, err
}

func (h *readHandle) Seek(offset int64, whence int) (int64, error) {
	return h.decoder.Seek(offset*2, whence)
}

func (h *readHandle) Write([]float64) (int, error) {
	return 0, fmt.Errorf("mp3: handle opened for reading")
}

func (h *readHandle) Close() error { return h.file.Close() }

type writeHandle struct {
	file *os.File
	w    *lame.LameWriter
	info format.Info
}

func openWrite(filename string, hints signal.Info) (format.Handle, error) {
	if !hints.RateSet() || !hints.ChannelsSet() {
		return nil, fmt.Errorf("mp3: %s: rate and channels must be resolved before opening for write", filename)
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := lame.NewWriter(f)
	w.Encoder.SetInSamplerate(hints.Rate)
	w.Encoder.SetNumChannels(hints.Channels)
	w.Encoder.SetBitrate(defaultBitRate)
	if err := w.Encoder.InitParams(); err != nil {
		f.Close()
		return nil, err
	}
	return &writeHandle{
		file: f,
		w:    w,
		info: format.Info{
			Signal: signal.Info{
				Rate:     hints.Rate,
				Channels: hints.Channels,
				Size:     signal.Size16,
				Encoding: signal.EncodingSigned,
			},
		},
	}, nil
}

func (h *writeHandle) Info() format.Info { return h.info }

func (h *writeHandle) Read([]float64) (int, error) {
	return 0, fmt.Errorf("mp3: handle opened for writing")
}

func (h *writeHandle) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("mp3: write handle does not support seek")
}

func (h *writeHandle) Write(buf []float64) (int, error) {
	raw := make([]byte, len(buf)*2)
	for i, v := range buf {
		s := int16(signal.FloatToInt(v, signal.Size16))
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	n, err := h.w.Write(raw)
	if err != nil {
		return n / 2, err
	}
	return len(buf), nil
}

func (h *writeHandle) Close() error {
	if err := h.w.Close(); err != nil {
		h.file.Close()
		return err
	}
	return h.file.Close()
}
