// Package playlist expands .m3u/.pls playlist files into ordered lists
// of input filenames (spec §6.1's playlist-file input form). The
// format layer itself is an external collaborator per spec §1; this
// package only resolves a playlist file into the filenames the driver
// loop then opens the same way as any other input, grounded on the
// teacher's plain os.Open/bufio.Scanner line-reading style used
// throughout its format backends (e.g. wav.go's header parsing).
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Expand reads the playlist at path and returns the ordered list of
// input filenames it names, resolved relative to the playlist's own
// directory, matching the original's handling of relative playlist
// entries.
func Expand(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pls":
		return expandPLS(f, filepath.Dir(path))
	default:
		return expandM3U(f, filepath.Dir(path))
	}
}

func expandM3U(r io.Reader, dir string) ([]string, error) {
	var files []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, resolve(dir, line))
	}
	return files, sc.Err()
}

func expandPLS(r io.Reader, dir string) ([]string, error) {
	var files []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "File") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		files = append(files, resolve(dir, strings.TrimSpace(line[eq+1:])))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("playlist: no File= entries found")
	}
	return files, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || strings.Contains(name, "://") {
		return name
	}
	return filepath.Join(dir, name)
}

// IsPlaylist reports whether filename's extension marks it as a
// playlist rather than a direct audio input, matching the original's
// dispatch on file extension before opening an input.
func IsPlaylist(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m3u", ".m3u8", ".pls":
		return true
	}
	return false
}
