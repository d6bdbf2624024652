package control_test

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/soxcore/sox/control"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSkipWhenSequenceAndProgressActive(t *testing.T) {
	c := control.New()
	c.SetSequenceMode(true)
	c.SetProgressActive(true)
	c.Start()
	defer c.Stop()

	proc, err := os.FindProcess(os.Getpid())
	assert.NoError(t, err)
	assert.NoError(t, proc.Signal(syscall.SIGTERM))

	assert.Eventually(t, func() bool { return c.Skipped() }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Aborted())
}

func TestAbortWhenNotSequenceMode(t *testing.T) {
	c := control.New()
	c.Start()
	defer c.Stop()

	proc, err := os.FindProcess(os.Getpid())
	assert.NoError(t, err)
	assert.NoError(t, proc.Signal(syscall.SIGTERM))

	assert.Eventually(t, func() bool { return c.Aborted() }, time.Second, 5*time.Millisecond)
}
