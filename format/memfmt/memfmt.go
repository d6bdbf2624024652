// Package memfmt provides an in-memory format.Backend used by the
// engine's own tests, the way the teacher's internal/mock package
// stands in for real pumps/sinks/processors in pipe tests. It has no
// on-disk or device counterpart in the original driver; it is this
// module's test double for the "format layer" external collaborator.
package memfmt

import (
	"fmt"
	"io"
	"sync"

	"github.com/soxcore/sox/format"
	"github.com/soxcore/sox/signal"
)

// File is a named in-memory buffer that Backend opens handles against.
// Construct one and Register it before running a session so that
// file.Entry.Filename can name it.
type File struct {
	mu   sync.Mutex
	Info format.Info
	Data []float64 // interleaved samples, read-only source data
}

// Backend resolves filenames to registered in-memory Files.
type Backend struct {
	mu    sync.Mutex
	files map[string]*File
}

// NewBackend returns an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{files: make(map[string]*File)}
}

// Name implements format.Backend.
func (*Backend) Name() string { return "mem" }

// Put registers f under name, making it openable for read; writes
// target a fresh *File reachable afterwards via Get.
func (b *Backend) Put(name string, f *File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = f
}

// Get returns the named file, or nil if none was registered.
func (b *Backend) Get(name string) *File {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files[name]
}

// Open implements format.Backend.
func (b *Backend) Open(filename string, hints signal.Info, mode format.Mode) (format.Handle, error) {
	if mode == format.ModeWrite {
		f := &File{Info: format.Info{Signal: hints}}
		b.Put(filename, f)
		return &handle{file: f, writing: true}, nil
	}
	f := b.Get(filename)
	if f == nil {
		return nil, fmt.Errorf("memfmt: %s: %w", filename, format.ErrFormat)
	}
	return &handle{file: f}, nil
}

type handle struct {
	file    *File
	pos     int
	writing bool
}

func (h *handle) Info() format.Info {
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	info := h.file.Info
	info.Length = int64(len(h.file.Data))
	return info
}

func (h *handle) Read(buf []float64) (int, error) {
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	if h.pos >= len(h.file.Data) {
		return 0, io.EOF
	}
	n := copy(buf, h.file.Data[h.pos:])
	h.pos += n
	return n, nil
}

func (h *handle) Seek(offset int64, whence int) (int64, error) {
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	switch whence {
	case io.SeekStart:
		h.pos = int(offset)
	case io.SeekCurrent:
		h.pos += int(offset)
	default:
		return 0, fmt.Errorf("memfmt: unsupported seek whence %d", whence)
	}
	return int64(h.pos), nil
}

func (h *handle) Write(buf []float64) (int, error) {
	if !h.writing {
		return 0, fmt.Errorf("memfmt: handle opened for reading")
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	h.file.Data = append(h.file.Data, buf...)
	return len(buf), nil
}

func (h *handle) Close() error { return nil }
