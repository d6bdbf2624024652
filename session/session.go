// Package session implements the driver loop from spec §4.8: opening
// inputs and the output, planning and starting the effects chain, and
// running the combine/flow_out cycle until the combiner reports EOF,
// the user aborts, or the sink fails. It is grounded on the teacher's
// session package (a functional-options value object) generalized from
// a DSP-pulse descriptor into the full per-run state spec §4.8
// describes, and on run.go's startHook/execute/flushHook vocabulary for
// the effect table's start/flow/stop lifecycle.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/soxcore/sox/chain"
	"github.com/soxcore/sox/combine"
	"github.com/soxcore/sox/control"
	"github.com/soxcore/sox/effect"
	"github.com/soxcore/sox/file"
	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/log"
	"github.com/soxcore/sox/plan"
	"github.com/soxcore/sox/progress"
	"github.com/soxcore/sox/signal"
)

// Option configures a Session, the same functional-options shape the
// teacher's session package used for its sample-rate/buffer-size
// triple, generalized to the full set spec §4.8/SPEC_FULL §10.3
// describes.
type Option func(*Session)

// BufferSize sets the per-slot buffer capacity in wide samples,
// matching `--buffer BYTES` (spec §6.1), whose minimum the original
// enforces at 17.
func BufferSize(n int) Option {
	return func(s *Session) {
		if n < 17 {
			n = 17
		}
		s.bufferSize = n
	}
}

// Combine sets the combiner mode, matching `--combine`/`-m`/`-M`.
func Combine(mode combine.Mode) Option {
	return func(s *Session) { s.mode = mode }
}

// Comment stores the output comment, matching `--comment`/`--comment-file`.
// Run does not pass it to the output: a backend's Open receives only
// signal hints, so no comment is written.
func Comment(c string) Option {
	return func(s *Session) { s.comment = c }
}

// ReplayGain sets the replay-gain policy, matching `--replay-gain`.
func ReplayGain(p file.ReplayGainPolicy) Option {
	return func(s *Session) { s.replayGain = p }
}

// Verbosity sets the diagnostic log level, matching `-V[N]`.
func Verbosity(v int) Option {
	return func(s *Session) { s.verbosity = v }
}

// Interactive enables the overwrite confirmation prompt, matching
// `--interactive`.
func Interactive(v bool) Option {
	return func(s *Session) { s.interactive = v }
}

// Speed sets the global speed factor, which scales combiner.rate
// (rounded to the nearest integer) per spec §3's "Combiner state".
func Speed(factor float64) Option {
	return func(s *Session) { s.speed = factor }
}

// Progress enables or disables the status line, matching `-S`/`-q`.
func Progress(v bool) Option {
	return func(s *Session) { s.progress = v }
}

const defaultBufferSize = 8192

// Session holds one run's configuration and, once Run starts, its
// live state: the file registry, effect table, scheduler and
// controller.
type Session struct {
	ID xid.ID

	bufferSize  int
	mode        combine.Mode
	comment     string
	replayGain  file.ReplayGainPolicy
	verbosity   int
	interactive bool
	speed       float64
	progress    bool

	Backends *format.Registry
	Registry *file.Registry
	Effects  []effect.Descriptor

	// Trim, if set, is the first user effect's trim state; Run passes
	// it to plan.OptimizeTrim before the main loop starts (spec §4.8's
	// optimize-trim hook). Set it via the UseTrim option when Effects'
	// first entry comes from effect.Trim(...).Descriptor().
	Trim *effect.TrimEffect
}

// UseTrim records t as the session's optimize-trim candidate. Callers
// that put a trim effect first in their effect list should pass the
// same *effect.TrimEffect here so Run can apply the seek optimization.
func UseTrim(t *effect.TrimEffect) Option {
	return func(s *Session) { s.Trim = t }
}

// New returns a configured Session, matching the teacher's
// session.New(options...) constructor shape.
func New(backends *format.Registry, options ...Option) *Session {
	s := &Session{
		ID:         xid.New(),
		bufferSize: defaultBufferSize,
		mode:       combine.Sequence,
		speed:      1,
		progress:   true,
		Backends:   backends,
		Registry:   file.NewRegistry(),
	}
	for _, opt := range options {
		opt(s)
	}
	log.SetVerbosity(s.verbosity)
	return s
}

// ErrNoInputs is returned by Run when the registry has no inputs.
var ErrNoInputs = errors.New("session: no input files")

// ErrUserAbort is returned by Run when the controller's abort flag
// stopped the session mid-stream (spec §4.6).
var ErrUserAbort = errors.New("session: aborted by user")

// resolveBackend looks up the backend for e's filetype hint, falling
// back to its filename extension, matching the original's handling of
// an optional `-t` filetype override.
func (s *Session) resolveBackend(filetypeHint, filename string) (format.Backend, error) {
	name := filetypeHint
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(filename), ".")
	}
	backend, ok := s.Backends.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("session: no format backend for %q", name)
	}
	return backend, nil
}

// openInput opens a single file.Entry for reading via the matching
// format.Backend, attaching the resolved signal.Info to the entry.
func (s *Session) openInput(e *file.Entry) error {
	backend, err := s.resolveBackend(e.FiletypeHint, e.Filename)
	if err != nil {
		return err
	}
	h, err := backend.Open(e.Filename, e.Signal, format.ModeRead)
	if err != nil {
		return fmt.Errorf("session: opening input %s: %w", e.Filename, err)
	}
	e.Handle = h
	e.Signal = h.Info().Signal
	if c := h.Info().Comment; c != "" {
		e.Comment = c
	}
	file.ResolveReplayGain(e, s.replayGain)
	return nil
}

// openOutput opens the registry's output for writing against derived,
// matching spec §4.8's "open output with signal derived from
// combiner".
func (s *Session) openOutput(e *file.Entry, derived signal.Info, interactiveStdin *os.File, diag io.Writer) error {
	ok, err := confirmOverwrite(e.Filename, s.interactive, interactiveStdin, diag)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session: output %s exists, not overwriting", e.Filename)
	}
	backend, err := s.resolveBackend(e.FiletypeHint, e.Filename)
	if err != nil {
		return err
	}
	h, err := backend.Open(e.Filename, derived, format.ModeWrite)
	if err != nil {
		return fmt.Errorf("session: opening output %s: %w", e.Filename, err)
	}
	e.Handle = h
	e.Signal = derived
	return nil
}

// Run executes the driver loop (spec §4.8) once, over the current
// combine mode, writing every input to a single output. The output is
// never reopened: in Sequence mode, an input whose channels or rate
// differ from the first stops the run with combine.ErrMismatch.
//
// Every exit path — success, an error return, or a user abort — runs
// through one deferred teardown (spec §5's "registered globally so
// every exit path closes handles and unlinks an incomplete output"):
// started effects are stopped, the registry's handles are closed, and
// if the output was opened but the session did not succeed, the output
// file is unlinked.
func (s *Session) Run(ctx *Context) (err error) {
	if len(s.Registry.Inputs) == 0 {
		return ErrNoInputs
	}
	logger := log.GetLogger()

	var (
		builtPlan  []effect.Descriptor
		output     *file.Entry
		outputOpen bool
	)
	defer func() {
		if builtPlan != nil {
			stopAll(builtPlan, logger)
		}
		if cerr := s.Registry.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil && outputOpen {
			unlinkOutput(output, logger)
		}
	}()

	for i := len(s.Registry.Inputs) - 1; i >= 0; i-- {
		if err = s.openInput(s.Registry.Inputs[i]); err != nil {
			return err
		}
	}

	combiner, cerr := s.buildCombiner()
	if cerr != nil {
		err = cerr
		return err
	}
	combiner.Rate = int(float64(combiner.Rate)*s.speed + 0.5)

	output = s.Registry.Output
	derived := signal.Info{Rate: combiner.Rate, Channels: combiner.Channels}
	if output.Signal.RateSet() {
		derived.Rate = output.Signal.Rate
	}
	if output.Signal.ChannelsSet() {
		derived.Channels = output.Signal.Channels
	}
	if err = s.openOutput(output, derived, os.Stdin, os.Stderr); err != nil {
		return err
	}
	outputOpen = true

	builtPlan, err = plan.Build(signal.Info{Rate: combiner.Rate, Channels: combiner.Channels}, derived, s.Effects)
	if err != nil {
		return err
	}
	lengthWide := knownOutputLength(s.mode, s.Registry.Inputs, combiner.Channels, builtPlan)

	table := effect.NewTable(s.bufferSize * maxChannels(combiner.Channels, derived.Channels))
	in := signal.Info{Rate: combiner.Rate, Channels: combiner.Channels}
	for _, d := range builtPlan {
		// A FlagNull proxy has no effect and is left out of the chain.
		if d.Flags.Has(effect.FlagNull) {
			continue
		}
		slot, aerr := table.Append(d)
		if aerr != nil {
			err = aerr
			return err
		}
		// If this effect can't handle multiple channels itself, give it
		// a stereo-split twin (spec §4.3/§4.4's "mark the right-channel
		// twin"): the scheduler de-interleaves L/R, flows each side
		// through an independent copy of the same descriptor, and
		// re-interleaves the results.
		if in.Channels == 2 && !d.Flags.Has(effect.FlagMChan) {
			slot.Right = effect.NewSlot(d, table.BufSize)
		}
		out, serr := d.Start(in)
		if errors.Is(serr, effect.ErrNull) {
			table.Remove(len(table.Slots) - 1)
			continue
		}
		if serr != nil {
			err = fmt.Errorf("session: starting effect %s: %w", d.Name, serr)
			return err
		}
		slot.InInfo = in
		slot.OutInfo = out
		in = out
	}

	ctrl := control.New()
	ctrl.SetSequenceMode(s.mode == combine.Sequence || s.mode == combine.Concatenate)
	ctrl.SetProgressActive(s.progress)
	ctrl.Start()
	defer ctrl.Stop()

	reporter := progress.NewReporter(os.Stderr, combiner.Rate, combiner.Channels, s.progress)

	if s.Trim != nil {
		seekers := seekableInputs(s.Registry.Inputs)
		if terr := plan.OptimizeTrim(s.Trim, seekers, combiner.Channels); terr != nil {
			logger.WithError(terr).Warn("optimize-trim seek failed")
		}
	}

	sink := &handleSink{h: output.Handle}
	sched := chain.NewScheduler(table, sink, derived.Channels)

	var samplesRead int64
	wideBuf := make([]float64, (s.bufferSize)*combiner.Channels)
	for {
		if ctrl.Aborted() {
			err = ErrUserAbort
			return err
		}
		if ctx != nil && ctx.Done != nil {
			select {
			case <-ctx.Done:
				err = ErrUserAbort
				return err
			default:
			}
		}
		wide, nerr := combiner.Next(wideBuf)
		if nerr != nil {
			err = nerr
			return err
		}
		if wide == 0 {
			break
		}
		samplesRead += int64(wide)
		n := copy(table.Slots[0].Buf, wideBuf[:wide*combiner.Channels])
		table.Slots[0].OLen = n

		ferr := sched.FlowOut()
		if ferr != nil && ferr != io.EOF {
			err = ferr
			return err
		}
		reporter.Report(time.Now(), samplesRead, lengthWide, uint64(sched.OutputSamples), totalClips(combiner, table))
		if ferr == io.EOF {
			// the chain itself terminated (e.g. a fixed-length trim
			// completed); no further input reads are needed.
			break
		}
	}

	if derr := drainAll(table, sched); derr != nil && derr != io.EOF {
		err = derr
		return err
	}

	reporter.Final(time.Now(), samplesRead, lengthWide, uint64(sched.OutputSamples), totalClips(combiner, table))
	logger.Infof("session %s: %d input(s), %d wide samples written", s.ID, len(s.Registry.Inputs), sched.OutputSamples)
	return nil
}

// Context carries cancellation for a Run call; kept distinct from
// context.Context because the driver loop's own abort signaling
// (control.Controller) is the primary stop mechanism and this type
// exists only so callers can wire in their own ctx.Done() if desired.
type Context struct {
	Done <-chan struct{}
}

func (s *Session) buildCombiner() (*combine.Combiner, error) {
	inputs := make([]*combine.Input, len(s.Registry.Inputs))
	for i, e := range s.Registry.Inputs {
		inputs[i] = &combine.Input{
			Signal:     e.Signal,
			Reader:     e.Handle,
			Volume:     e.Volume,
			ReplayGain: e.ReplayGain,
		}
	}
	return combine.New(s.mode, inputs)
}

type handleSink struct {
	h format.Handle
}

func (hs *handleSink) Write(buf []float64) (int, error) {
	return hs.h.Write(buf)
}

// knownOutputLength implements spec §4.4's known-length propagation:
// 0 (unknown) as soon as any planned effect carries effect.FlagLength,
// otherwise the combine-mode-appropriate total of each input's wide
// length (concatenate: sum; mix/merge: max; sequence is inherently
// unbounded until segue fails, so it is treated as unknown too).
func knownOutputLength(mode combine.Mode, inputs []*file.Entry, channels int, builtPlan []effect.Descriptor) int64 {
	if !plan.KnownLength(builtPlan) {
		return 0
	}
	if mode == combine.Sequence {
		return 0
	}
	var total, max int64
	for _, e := range inputs {
		wide := int64(0)
		if e.Handle != nil && e.Signal.Channels > 0 {
			wide = e.Handle.Info().Length / int64(e.Signal.Channels)
		}
		total += wide
		if wide > max {
			max = wide
		}
	}
	if mode == combine.Concatenate {
		return total
	}
	return max
}

func maxChannels(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func totalClips(c *combine.Combiner, t *effect.Table) uint64 {
	var total uint64
	total += c.MixingClips
	for _, in := range c.Inputs {
		total += in.Clips
	}
	for _, slot := range t.Slots {
		total += slot.Clips
		if slot.Right != nil {
			total += slot.Right.Clips
		}
	}
	return total
}

func drainAll(table *effect.Table, sched *chain.Scheduler) error {
	for {
		err := sched.FlowOut()
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return err
		}
		allEmpty := true
		for _, s := range table.Slots {
			if s.Pending() > 0 {
				allEmpty = false
			}
		}
		if allEmpty {
			return nil
		}
	}
}

func stopAll(plan []effect.Descriptor, logger interface{ Warn(...interface{}) }) {
	for _, d := range plan {
		if err := d.Stop(); err != nil {
			logger.Warn(fmt.Sprintf("effect %s: stop: %v", d.Name, err))
		}
	}
}

// unlinkOutput removes the output file after a failed run, matching
// spec §5's "on abnormal exit when the output file was created but
// session did not succeed, the output file is unlinked (regular files
// only)". Live devices are left alone; a missing file is not an error.
func unlinkOutput(output *file.Entry, logger *logrus.Logger) {
	if output == nil || output.Handle == nil {
		return
	}
	if output.Handle.Info().Flags.Has(format.FlagDevice) {
		return
	}
	if err := os.Remove(output.Filename); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("unlink output after failed run")
	}
}

func seekableInputs(entries []*file.Entry) []plan.Seeker {
	var out []plan.Seeker
	for _, e := range entries {
		if s, ok := e.Handle.(plan.Seeker); ok {
			out = append(out, s)
		}
	}
	return out
}
