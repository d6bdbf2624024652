// Command sox is the minimal CLI entry point wiring a session.Session
// together from flags and positional filenames, in the style of the
// teacher's cmd/phono command: parse with the standard flag package,
// map a returned error to an exit code, never call os.Exit anywhere
// but here.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/soxcore/sox/combine"
	"github.com/soxcore/sox/file"
	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/format/aiff"
	"github.com/soxcore/sox/format/mp3"
	"github.com/soxcore/sox/format/wav"
	"github.com/soxcore/sox/session"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitRun   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := parseConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sox:", err)
		return exitUsage
	}

	backends := format.NewRegistry()
	backends.Register(wav.Backend{}, "wav")
	backends.Register(aiff.Backend{}, "aiff", "aif")
	backends.Register(mp3.Backend{}, "mp3")

	s := session.New(backends,
		session.BufferSize(cfg.bufferSize),
		session.Combine(cfg.combine),
		session.Comment(cfg.comment),
		session.ReplayGain(cfg.replayGain),
		session.Verbosity(cfg.verbosity),
		session.Interactive(cfg.interactive),
		session.Speed(cfg.speed),
		session.Progress(cfg.progress),
	)

	for _, name := range cfg.inputs {
		in := file.NewEntry(name, cfg.filetype)
		in.Volume = cfg.volume
		if err := s.Registry.AddInput(in); err != nil {
			fmt.Fprintln(os.Stderr, "sox:", err)
			return exitUsage
		}
	}
	s.Registry.SetOutput(file.NewEntry(cfg.output, cfg.filetype))

	if err := s.Run(&session.Context{}); err != nil {
		fmt.Fprintln(os.Stderr, "sox:", err)
		return exitRun
	}
	return exitOK
}

type config struct {
	inputs      []string
	output      string
	filetype    string
	bufferSize  int
	combine     combine.Mode
	comment     string
	replayGain  file.ReplayGainPolicy
	verbosity   int
	interactive bool
	speed       float64
	progress    bool
	volume      float64
}

func parseConfig(args []string) (*config, error) {
	fs := flag.NewFlagSet("sox", flag.ContinueOnError)
	var (
		filetype    = fs.String("t", "", "filetype hint for all files")
		combineMode = fs.String("combine", "concatenate", "combine mode: sequence, concatenate, mix, merge")
		comment     = fs.String("comment", "", "output comment (stored on the session; not written to the file)")
		replayGain  = fs.String("replay-gain", "off", "replay-gain policy: off, track, album")
		verbosity   = fs.Int("V", 2, "diagnostic verbosity (0-4)")
		interactive = fs.Bool("interactive", false, "confirm before overwriting an existing output file")
		speed       = fs.Float64("speed", 1, "global speed factor")
		quiet       = fs.Bool("q", false, "disable the progress line")
		bufferSize  = fs.Int("buffer", 8192, "per-slot buffer size in wide samples")
		volume      = fs.Float64("v", 1, "input volume (applied to every input listed)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return nil, fmt.Errorf("usage: sox [options] input... output")
	}

	mode, err := parseCombineMode(*combineMode)
	if err != nil {
		return nil, err
	}
	gain, err := parseReplayGainPolicy(*replayGain)
	if err != nil {
		return nil, err
	}

	return &config{
		inputs:      rest[:len(rest)-1],
		output:      rest[len(rest)-1],
		filetype:    *filetype,
		bufferSize:  *bufferSize,
		combine:     mode,
		comment:     *comment,
		replayGain:  gain,
		verbosity:   *verbosity,
		interactive: *interactive,
		speed:       *speed,
		progress:    !*quiet,
		volume:      *volume,
	}, nil
}

func parseCombineMode(s string) (combine.Mode, error) {
	switch strings.ToLower(s) {
	case "sequence":
		return combine.Sequence, nil
	case "concatenate", "":
		return combine.Concatenate, nil
	case "mix":
		return combine.Mix, nil
	case "merge":
		return combine.Merge, nil
	default:
		return 0, fmt.Errorf("unknown combine mode %q", s)
	}
}

func parseReplayGainPolicy(s string) (file.ReplayGainPolicy, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return file.ReplayGainOff, nil
	case "track":
		return file.ReplayGainTrack, nil
	case "album":
		return file.ReplayGainAlbum, nil
	default:
		return 0, fmt.Errorf("unknown replay-gain policy %q", s)
	}
}
