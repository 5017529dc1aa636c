package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := NewDirectory(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return d
}

func TestNewDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	d, err := NewDirectory(root)
	require.NoError(t, err)

	// Root and staging area must exist.
	info, err := os.Stat(d.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(d.Root(), tempDirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewDirectory_EmptyRoot(t *testing.T) {
	_, err := NewDirectory("")
	assert.Error(t, err)
}

func TestStageTempAndPromote(t *testing.T) {
	d := newTestDirectory(t)

	tmp, err := d.StageTemp("u1", "lecture.wav", strings.NewReader("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(d.Root(), tempDirName, "u1", "lecture.wav"), tmp)

	dst, err := d.Promote(tmp, "u1", "r1", "lecture.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(d.Root(), "u1", "r1", "lecture.wav"), dst)

	// File exists at the destination with intact content, and the
	// temporary path is gone.
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(b))

	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestPromote_ReplacesExisting(t *testing.T) {
	d := newTestDirectory(t)

	tmp, err := d.StageTemp("u1", "notes.pdf", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = d.Promote(tmp, "u1", "r1", "notes.pdf")
	require.NoError(t, err)

	tmp, err = d.StageTemp("u1", "notes.pdf", strings.NewReader("new"))
	require.NoError(t, err)
	dst, err := d.Promote(tmp, "u1", "r1", "notes.pdf")
	require.NoError(t, err)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}

func TestDiscard(t *testing.T) {
	d := newTestDirectory(t)

	tmp, err := d.StageTemp("u1", "notes.txt", strings.NewReader("plain text"))
	require.NoError(t, err)

	require.NoError(t, d.Discard(tmp))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))

	// Discarding twice is fine.
	assert.NoError(t, d.Discard(tmp))
}

func TestCleanComponent_Traversal(t *testing.T) {
	d := newTestDirectory(t)

	bad := []string{"", ".", "..", "../x", "a/b", `a\b`, "../../etc/passwd"}
	for _, name := range bad {
		_, err := d.StageTemp(name, "f.wav", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrBadName, "user id %q", name)

		_, err = d.StageTemp("u1", name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrBadName, "file name %q", name)
	}

	tmp, err := d.StageTemp("u1", "f.wav", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = d.Promote(tmp, "u1", "../r1", "f.wav")
	assert.ErrorIs(t, err, ErrBadName)
}
