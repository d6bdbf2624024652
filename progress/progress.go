// Package progress implements the driver's status-line reporter (spec
// §4.7): a 150ms-debounced, in-place redraw on the diagnostic stream
// showing elapsed/remaining time, completion percentage, and total
// clip count. It deliberately bypasses the structured logrus logger
// used elsewhere (see log package) and writes the redraw line directly,
// matching the original's fprintf(stderr, ...) redraw and SPEC_FULL
// §10.1's carve-out for this one diagnostic.
package progress

import (
	"fmt"
	"io"
	"time"
)

const debounce = 150 * time.Millisecond

// Reporter prints the single-line status described in spec §4.7.
type Reporter struct {
	Out      io.Writer
	Rate     int  // combiner.rate, for elapsed-time conversion
	Channels int  // combiner.channels
	Enabled  bool // false makes every Report call a no-op

	lastPrint time.Time
	printed   bool
}

// NewReporter returns a Reporter writing to out. enabled mirrors
// spec §4.7's "if verbosity disables progress, the reporter is a
// no-op".
func NewReporter(out io.Writer, rate, channels int, enabled bool) *Reporter {
	return &Reporter{Out: out, Rate: rate, Channels: channels, Enabled: enabled}
}

// Report prints a debounced status line. samplesRead is the count of
// wide samples read from the combiner so far; lengthWide is the known
// total wide-sample length of the session, or 0 if unknown.
// outputSamples and totalClips are as described in spec §4.7.
func (r *Reporter) Report(now time.Time, samplesRead, lengthWide int64, outputSamples, totalClips uint64) {
	if !r.Enabled {
		return
	}
	if r.printed && now.Sub(r.lastPrint) < debounce {
		return
	}
	r.lastPrint = now
	r.printed = true

	elapsed := time.Duration(0)
	if r.Rate > 0 {
		elapsed = time.Duration(float64(samplesRead)/float64(r.Rate)*float64(time.Second))
	}

	var remaining time.Duration
	var pct float64
	if lengthWide > 0 {
		if r.Rate > 0 {
			remainingWide := lengthWide - samplesRead
			if remainingWide < 0 {
				remainingWide = 0
			}
			remaining = time.Duration(float64(remainingWide)/float64(r.Rate)*float64(time.Second))
		}
		pct = float64(samplesRead) / float64(lengthWide) * 100
		if pct > 100 {
			pct = 100
		}
	}

	fmt.Fprintf(r.Out, "\rIn:%s %s[%5.1f%%] Out:%d Clips:%d",
		formatDuration(elapsed), remainingLabel(lengthWide, remaining), pct, outputSamples, totalClips)
}

// Final flushes the last status and emits the trailing newline spec
// §4.7 calls for on the final call.
func (r *Reporter) Final(now time.Time, samplesRead, lengthWide int64, outputSamples, totalClips uint64) {
	if !r.Enabled {
		return
	}
	r.printed = false // force the final line to print regardless of debounce
	r.Report(now, samplesRead, lengthWide, outputSamples, totalClips)
	fmt.Fprintln(r.Out)
}

func remainingLabel(lengthWide int64, remaining time.Duration) string {
	if lengthWide <= 0 {
		return ""
	}
	return fmt.Sprintf("Rem:%s ", formatDuration(remaining))
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
