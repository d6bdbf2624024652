// Package file models the driver's per-input/output registry entry
// (spec §3's "FileEntry"): filename, type hint, resolved signal info,
// volume/replay-gain, comment, clip count and opened handle. It is
// grounded on the teacher's phono.go Pulse/UID bookkeeping style (small
// value-holding structs assembled before a pipe runs), generalized to
// the sentinel-valued "unset until opened" fields spec §3 requires.
package file

import (
	"errors"

	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/signal"
)

// MaxInputFiles caps the input registry, matching the original's
// MAX_INPUT_FILES.
const MaxInputFiles = 2647

// Unset sentinels for Volume/ReplayGain, matching spec §3's "default
// = unset sentinel" requirement for these two fields.
const (
	VolumeUnset     = 0 // a FileEntry with VolumeUnset gets combiner-mode defaults
	ReplayGainUnset = 0
)

// Entry is one registry slot: an input or the single output, created
// during argument parsing or playlist expansion, mutated when opened,
// and closed during teardown.
type Entry struct {
	Filename     string
	FiletypeHint string
	Signal       signal.Info

	Volume     float64
	ReplayGain float64
	Comment    string

	VolumeClips uint64

	Handle format.Handle
}

// NewEntry returns an Entry with unset signal fields, matching
// new_file()'s defaults.
func NewEntry(filename, filetypeHint string) *Entry {
	return &Entry{
		Filename:     filename,
		FiletypeHint: filetypeHint,
		Signal:       signal.Unset(),
	}
}

// ErrTooManyInputs is returned by Registry.AddInput once MaxInputFiles
// is reached.
var ErrTooManyInputs = errors.New("file: too many input files")

// Registry holds the ordered input entries plus exactly one output,
// matching spec §3's "the output occupies the last slot" invariant by
// construction: Output is a distinct field, never part of Inputs.
type Registry struct {
	Inputs []*Entry
	Output *Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// AddInput appends e to the input list, enforcing MaxInputFiles.
func (r *Registry) AddInput(e *Entry) error {
	if len(r.Inputs) >= MaxInputFiles {
		return ErrTooManyInputs
	}
	r.Inputs = append(r.Inputs, e)
	return nil
}

// SetOutput sets the registry's single output slot.
func (r *Registry) SetOutput(e *Entry) { r.Output = e }

// Close closes every opened handle (inputs then output), collecting
// and joining any errors, matching teardown's "destroyed during
// teardown" lifecycle note.
func (r *Registry) Close() error {
	var errs []error
	for _, in := range r.Inputs {
		if in.Handle != nil {
			if err := in.Handle.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if r.Output != nil && r.Output.Handle != nil {
		if err := r.Output.Handle.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
