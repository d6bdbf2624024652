package plan

import "io"

// Seeker is the minimal contract OptimizeTrim needs from an opened
// input handle.
type Seeker interface {
	Seek(offset int64, whence int) (int64, error)
}

// OptimizeTrim implements spec §4.8's optimize-trim hook (grounded on
// the original's optimize_trim): when the first user effect is a trim
// and there is exactly one seekable input, seek that input past the
// trim's skip region and clear the trim, turning it into a no-op for
// the skipped samples instead of reading and discarding them.
//
// channels is the input's channel count, used to convert the trim's
// wide-sample skip into a sample-flat seek offset.
func OptimizeTrim(trim EffectTrimmer, seekable []Seeker, channels int) error {
	if trim == nil || len(seekable) != 1 {
		return nil
	}
	skip := trim.SkipWide()
	if skip <= 0 {
		return nil
	}
	_, err := seekable[0].Seek(int64(skip*channels), io.SeekStart)
	if err != nil {
		return err
	}
	trim.ClearSkip()
	return nil
}

// EffectTrimmer is the subset of effect.TrimEffect's API OptimizeTrim
// needs, kept as its own interface so this package doesn't import
// effect just to name one concrete type.
type EffectTrimmer interface {
	SkipWide() int
	ClearSkip()
}
