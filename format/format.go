// Package format defines the contract the driver consumes from the
// format layer (spec §6.2): open a file or device, read/write
// interleaved sample-flat buffers, seek, and close. Concrete backends
// live in sibling packages (wav, aiff, mp3, device); this package only
// describes the interface and the small amount of metadata a handle
// carries.
//
// The format layer itself — on-disk container parsing, device I/O,
// plug-in discovery — is an external collaborator per the spec; the
// backends here are minimal, real implementations provided so the rest
// of the engine has something concrete to drive and test against.
package format

import (
	"errors"

	"github.com/soxcore/sox/signal"
)

// Flag describes capabilities/properties of an opened handle.
type Flag int

const (
	FlagDevice  Flag = 1 << iota // a live device, not a regular file
	FlagSeek                     // Seek is supported
	FlagNoStdio                  // handle has no underlying *os.File (e.g. device)
	FlagPhony                    // a null/no-op handle (no real I/O)
)

// Has reports whether f carries all of want.
func (f Flag) Has(want Flag) bool { return f&want == want }

// Loop mirrors one of sox_loopinfo_t's loop slots. Handles may report
// loops in Info; the session does not copy them to the output.
type Loop struct {
	Start  int64
	Length int64
	Count  int
	Type   int
}

// MaxLoops matches the original's SOX_MAX_NLOOPS.
const MaxLoops = 8

// Instrument is opaque instrument metadata passed through unexamined.
type Instrument struct {
	MIDINote int
	MIDILow  int
	MIDIHigh int
}

// Info describes a handle's signal and container metadata.
type Info struct {
	Signal     signal.Info
	Length     int64 // total samples (not wide samples); 0 = unknown
	Comment    string
	Flags      Flag
	Loops      [MaxLoops]Loop
	Instrument Instrument
}

// Mode selects whether Open is for reading or writing.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// ErrFormat is returned by a Backend when it cannot make sense of the
// file's contents (bad header, unsupported encoding, etc).
var ErrFormat = errors.New("format: unrecognized or unsupported file contents")

// ErrWriteFailed is returned when Write makes no progress, mirroring
// the original's "len == 0" write-error case (spec §4.5).
var ErrWriteFailed = errors.New("format: write failed")

// Handle is an opened input or output stream of sample-flat data.
type Handle interface {
	// Info returns the handle's resolved signal/container metadata.
	// For write handles this reflects what was actually opened, which
	// may differ from the hints passed to Open once defaults are
	// applied.
	Info() Info

	// Read fills buf with up to len(buf) interleaved samples (not wide
	// samples) and returns how many were read. It returns io.EOF once
	// no more data is available. Reading fewer than len(buf) without
	// an error is allowed, matching the original's short-read
	// semantics.
	Read(buf []float64) (int, error)

	// Seek repositions a readable, seekable handle to the given sample
	// offset (not wide-sample offset) from the start of the stream.
	// whence follows io.Seeker's convention restricted to io.SeekStart
	// and io.SeekCurrent.
	Seek(offset int64, whence int) (int64, error)

	// Write appends len(buf) interleaved samples. Implementations
	// should accept partial writes only when a genuine short write
	// occurred; the sink writer (spec §4.5) retries until progress
	// stalls.
	Write(buf []float64) (int, error)

	// Close releases any underlying resource. Close is always called
	// exactly once per opened handle, even on error paths.
	Close() error
}

// Backend opens handles for one on-disk or device format.
type Backend interface {
	// Name identifies the backend for filetype-hint matching (e.g. "wav").
	Name() string

	// Open opens filename. hints carries any signal fields the caller
	// already knows (from per-file format options); an unset field in
	// hints that the backend can't infer from the file itself is a
	// fatal error on read, or copied from the combiner's signal on
	// write (the caller is responsible for that fill-in before write
	// opens, per signal.Info.Fill).
	Open(filename string, hints signal.Info, mode Mode) (Handle, error)
}

// Registry maps a filetype hint or file extension to the Backend that
// handles it, standing in for the original's plug-in discovery
// (find_formats()), which is out of scope here.
type Registry struct {
	byName map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Backend)}
}

// Register adds backend under its own Name() and any additional
// aliases (typically file extensions).
func (r *Registry) Register(backend Backend, aliases ...string) {
	r.byName[backend.Name()] = backend
	for _, a := range aliases {
		r.byName[a] = backend
	}
}

// Lookup returns the backend registered for name, if any.
func (r *Registry) Lookup(name string) (Backend, bool) {
	b, ok := r.byName[name]
	return b, ok
}
