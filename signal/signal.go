// Package signal describes the shape of an audio stream flowing through
// the engine (sample rate, channel count, encoding, word size) and the
// handful of numeric conversions every format backend and effect needs:
// interleaved-int <-> float64, bit-depth scaling, and saturating clip.
//
// All sample data inside the engine is carried as flat, interleaved
// float64 "sample-flat" buffers. A single multichannel frame of such a
// buffer is a wide sample; buffer lengths are reasoned in wide samples
// and multiplied by Info.Channels only at the boundary with a
// sample-flat slice.
package signal

import (
	"math"
	"time"
)

// Size is the on-disk word width of a sample, in bytes.
type Size int

// Recognized word widths. SizeUnset means "not yet known" and is the
// zero value, matching the sentinel convention used across Info.
const (
	SizeUnset Size = 0
	Size8     Size = 1
	Size16    Size = 2
	Size24    Size = 3
	Size32    Size = 4
	Size64    Size = 8
)

// Encoding identifies how samples are represented on disk.
type Encoding int

// Encodings recognized by the format-layer contract (§6.2). Compressed
// variants are recognized but not implemented by any backend in this
// module; a backend that can't handle one returns an error at open time.
const (
	EncodingUnknown Encoding = iota
	EncodingSigned
	EncodingUnsigned
	EncodingFloat
	EncodingULaw
	EncodingALaw
	EncodingADPCMIMA
	EncodingADPCMMS
	EncodingADPCMOKI
	EncodingGSM
)

// Tri is a tri-state option: inherit the format's default, force on, or
// force off. It replaces the magic-number "reverse bytes/bits/nibbles"
// flags of the original with an explicit option type.
type Tri int

const (
	TriDefault Tri = iota
	TriYes
	TriNo
)

// Info describes a stream's signal properties. The zero value of every
// field is its "unset" sentinel, except Compression which uses NaN
// (zero is a legitimate compression quality for some codecs).
type Info struct {
	Rate           int // Hz; 0 = unset
	Channels       int // 0 = unset
	Size           Size
	Encoding       Encoding
	ReverseBytes   Tri
	ReverseBits    Tri
	ReverseNibbles Tri
	Compression    float64
}

// Unset returns a fully-unset Info, matching new_file()'s defaults.
func Unset() Info {
	return Info{Compression: math.NaN()}
}

// RateSet reports whether Rate has been resolved.
func (i Info) RateSet() bool { return i.Rate > 0 }

// ChannelsSet reports whether Channels has been resolved.
func (i Info) ChannelsSet() bool { return i.Channels > 0 }

// CompressionSet reports whether Compression has been resolved.
func (i Info) CompressionSet() bool { return !math.IsNaN(i.Compression) }

// Fill copies any unset field of i from src, mirroring the output-signal
// derivation in sox.c's process(): "the output's unset fields are derived
// from the combiner's signal just before the output is opened."
func (i Info) Fill(src Info) Info {
	if !i.RateSet() {
		i.Rate = src.Rate
	}
	if i.Size == SizeUnset {
		i.Size = src.Size
	}
	if i.Encoding == EncodingUnknown {
		i.Encoding = src.Encoding
	}
	if !i.ChannelsSet() {
		i.Channels = src.Channels
	}
	return i
}

// DurationOf returns the playback duration of wideSamples wide samples
// at the given rate.
func DurationOf(rate int, wideSamples int64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(wideSamples) / float64(rate) * float64(time.Second))
}

// fullScale mirrors the original's bit-depth scaling tables: the
// maximum magnitude representable by a signed word of this size.
func (s Size) fullScale() float64 {
	switch s {
	case Size8:
		return math.MaxInt8
	case Size16:
		return math.MaxInt16
	case Size24:
		return 1<<23 - 1
	case Size32:
		return math.MaxInt32
	default:
		return 1
	}
}

// IntToFloat converts a signed PCM sample of the given word size into the
// engine's internal [-1, 1] float64 domain.
func IntToFloat(v int, size Size) float64 {
	return float64(v) / size.fullScale()
}

// FloatToInt converts an internal float64 sample back into a signed PCM
// word of the given size, without clipping; callers that need saturation
// should clip first.
func FloatToInt(v float64, size Size) int {
	return int(v * size.fullScale())
}

// Clip saturates v to the representable float range [-1, 1] and reports
// whether clipping occurred, mirroring SOX_ROUND_CLIP_COUNT's clip
// accounting (minus integer rounding, which only matters for integer
// encodings and is applied by FloatToInt's caller).
func Clip(v float64) (float64, bool) {
	switch {
	case v > 1:
		return 1, true
	case v < -1:
		return -1, true
	default:
		return v, false
	}
}

// WideLen returns the number of wide samples (frames) held by a
// sample-flat buffer with the given channel count.
func WideLen(buf []float64, channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(buf) / channels
}

// Frame returns the slice of buf holding wide sample ws, assuming buf is
// interleaved with the given channel count.
func Frame(buf []float64, channels, ws int) []float64 {
	return buf[ws*channels : ws*channels+channels]
}
