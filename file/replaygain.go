package file

import (
	"strconv"
	"strings"
)

// ReplayGainPolicy selects which tag the resolver prefers, matching
// the original driver's `--replay-gain {track|album|off}` option.
type ReplayGainPolicy int

const (
	ReplayGainOff ReplayGainPolicy = iota
	ReplayGainTrack
	ReplayGainAlbum
)

// ResolveReplayGain scans e.Comment for `ReplayGain_Track_Gain=` and
// `ReplayGain_Album_Gain=` tokens (the form the original's
// set_replay_gain looks for) and sets e.ReplayGain to the dB value
// selected by policy. It tries the requested key first, then falls
// back to the other one if absent — the original's two-try loop with
// `rg ^= RG_track ^ RG_album` on the second pass (sox.c's
// set_replay_gain), symmetric in both directions rather than degrading
// only Album to Track. It is a no-op when policy is ReplayGainOff or
// neither tag is present, leaving e.ReplayGain at ReplayGainUnset.
func ResolveReplayGain(e *Entry, policy ReplayGainPolicy) {
	if policy == ReplayGainOff {
		return
	}
	key := "replaygain_track_gain"
	other := "replaygain_album_gain"
	if policy == ReplayGainAlbum {
		key, other = other, key
	}
	if gain, ok := scanGainTag(e.Comment, key); ok {
		e.ReplayGain = gain
		return
	}
	if gain, ok := scanGainTag(e.Comment, other); ok {
		e.ReplayGain = gain
	}
}

func scanGainTag(comment, key string) (float64, bool) {
	lower := strings.ToLower(comment)
	idx := strings.Index(lower, key+"=")
	if idx < 0 {
		return 0, false
	}
	rest := comment[idx+len(key)+1:]
	end := strings.IndexAny(rest, "\n\r;")
	if end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(strings.ToLower(rest), "db")
	rest = strings.TrimSpace(rest)
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
