package progress_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soxcore/sox/progress"
)

func TestReportIsNoOpWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := progress.NewReporter(&buf, 44100, 2, false)
	r.Report(time.Now(), 100, 1000, 100, 0)
	assert.Empty(t, buf.String())
}

func TestReportDebounces(t *testing.T) {
	var buf bytes.Buffer
	r := progress.NewReporter(&buf, 44100, 2, true)
	start := time.Now()
	r.Report(start, 0, 1000, 0, 0)
	first := buf.Len()
	r.Report(start.Add(10*time.Millisecond), 10, 1000, 10, 0)
	assert.Equal(t, first, buf.Len())
	r.Report(start.Add(200*time.Millisecond), 20, 1000, 20, 0)
	assert.Greater(t, buf.Len(), first)
}

func TestFinalEmitsNewline(t *testing.T) {
	var buf bytes.Buffer
	r := progress.NewReporter(&buf, 44100, 2, true)
	r.Final(time.Now(), 1000, 1000, 1000, 3)
	assert.Contains(t, buf.String(), "\n")
	assert.Contains(t, buf.String(), "Clips:3")
}
