package plan_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/effect"
	"github.com/soxcore/sox/plan"
)

type fakeSeeker struct {
	offset int64
	whence int
}

func (s *fakeSeeker) Seek(offset int64, whence int) (int64, error) {
	s.offset = offset
	s.whence = whence
	return offset, nil
}

func TestOptimizeTrimSeeksAndClears(t *testing.T) {
	trim := effect.Trim(2, 100, 0)
	seeker := &fakeSeeker{}

	err := plan.OptimizeTrim(trim, []plan.Seeker{seeker}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), seeker.offset)
	assert.Equal(t, io.SeekStart, seeker.whence)
	assert.Equal(t, 0, trim.SkipWide())
}

func TestOptimizeTrimNoopWithMultipleSeekableInputs(t *testing.T) {
	trim := effect.Trim(1, 50, 0)
	err := plan.OptimizeTrim(trim, []plan.Seeker{&fakeSeeker{}, &fakeSeeker{}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, trim.SkipWide())
}
