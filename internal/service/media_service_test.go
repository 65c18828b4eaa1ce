package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestMedia_SaveImage(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(dir, 1024)

	url, err := svc.SaveImage(bytes.NewReader(pngHeader), int64(len(pngHeader)), "logos")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/logos/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored := filepath.Join(dir, "logos", filepath.Base(url))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	entries, err := os.ReadDir(filepath.Join(dir, "logos"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, svc.Remove(url))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, svc.Remove(url))
	assert.NoError(t, svc.Remove("https://cdn.example.ma/logo.png"))
}

func TestMedia_SaveImageRejects(t *testing.T) {
	svc := NewMediaService(t.TempDir(), 64)

	_, err := svc.SaveImage(strings.NewReader("<html><body>not an image</body></html>"), 38, "logos")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = svc.SaveImage(bytes.NewReader(pngHeader), 65, "logos")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 100)...)
	_, err = svc.SaveImage(bytes.NewReader(big), 10, "logos")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestMedia_FolderCannotEscape(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(dir, 1024)

	url, err := svc.SaveImage(bytes.NewReader(pngHeader), int64(len(pngHeader)), "../../etc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/etc/"))
	_, err = os.Stat(filepath.Join(dir, "etc", filepath.Base(url)))
	assert.NoError(t, err)
}
