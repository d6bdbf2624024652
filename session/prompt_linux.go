package session

import (
	"os"

	"golang.org/x/sys/unix"
)

// isTTY reports whether f is a terminal, replacing the original's
// isatty() with an ioctl probe for the terminal attributes.
func isTTY(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
