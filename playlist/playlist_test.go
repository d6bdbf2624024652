package playlist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soxcore/sox/playlist"
)

func TestExpandM3U(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.m3u")
	require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\ntrack1.wav\n\ntrack2.wav\n"), 0o644))

	files, err := playlist.Expand(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "track1.wav"), filepath.Join(dir, "track2.wav")}, files)
}

func TestExpandPLS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.pls")
	content := "[playlist]\nFile1=track1.wav\nFile2=track2.wav\nNumberOfEntries=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	files, err := playlist.Expand(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "track1.wav"), filepath.Join(dir, "track2.wav")}, files)
}

func TestIsPlaylist(t *testing.T) {
	assert.True(t, playlist.IsPlaylist("set.m3u"))
	assert.True(t, playlist.IsPlaylist("set.PLS"))
	assert.False(t, playlist.IsPlaylist("track.wav"))
}
