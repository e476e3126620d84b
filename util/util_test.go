package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsI(t *testing.T) {
	assert.True(t, ContainsI("Error: PERMISSION DENIED", "permission denied"))
	assert.True(t, ContainsI("权限不足", "权限不足"))
	assert.False(t, ContainsI("ok", "denied"))
}

func TestIsSha1Hex(t *testing.T) {
	assert.True(t, IsSha1Hex("0123456789abcdefABCDEF0123456789abcdef01"))
	assert.False(t, IsSha1Hex("0123456789abcdef"))
	assert.False(t, IsSha1Hex("not-a-hash"))
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "a.torrent")
	require.NoError(t, os.WriteFile(filename, []byte("d"), 0644))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(filename))
	assert.True(t, FileExists(filename))
	assert.False(t, FileExists(dir))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunks)
	assert.Empty(t, Chunk([]int{}, 2))
}
