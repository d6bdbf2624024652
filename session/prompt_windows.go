package session

import "os"

// isTTY always reports false on Windows; the original's isatty() path
// is POSIX-only and this driver's interactive prompt degrades to
// always-overwrite there.
func isTTY(f *os.File) bool { return false }
