package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline/postline/pkg/postline"
)

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestUploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	uri, err := backend.Upload(ctx, postline.UploadParams{
		ObjectKey: "media/ab/key_doc.txt",
		FileName:  "doc.txt",
	}, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"), uri)

	rc, err := backend.Download(ctx, "media/ab/key_doc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	meta, err := backend.GetObjectMeta(ctx, "media/ab/key_doc.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)

	require.NoError(t, backend.Delete(ctx, "media/ab/key_doc.txt"))
	_, err = backend.Download(ctx, "media/ab/key_doc.txt")
	assert.Error(t, err)
}

func TestUploadWithURLPrefix(t *testing.T) {
	ctx := context.Background()
	backend, err := New(Config{BaseDir: t.TempDir(), URLPrefix: "https://cdn.example.com/media/"})
	require.NoError(t, err)

	uri, err := backend.Upload(ctx, postline.UploadParams{ObjectKey: "a/b.png"}, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a/b.png", uri)
}

func TestUploadCreatesNestedDirectories(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	backend, err := New(Config{BaseDir: baseDir})
	require.NoError(t, err)

	_, err = backend.Upload(ctx, postline.UploadParams{ObjectKey: "x/y/z.bin"}, strings.NewReader("b"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(baseDir, "x", "y", "z.bin"))
	assert.NoError(t, err)
}
