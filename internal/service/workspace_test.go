package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWorkspaceReleaseRemovesDir(t *testing.T) {
	root := t.TempDir()
	dir, release, err := AcquireWorkspace(root, "run_a", false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.wav"), []byte("x"), 0o644))

	release()
	assert.NoDirExists(t, dir)
}

func TestAcquireWorkspaceKeep(t *testing.T) {
	root := t.TempDir()
	dir, release, err := AcquireWorkspace(root, "run_b", true)
	require.NoError(t, err)

	release()
	assert.DirExists(t, dir)
}

func TestAcquireWorkspaceNeedsRunID(t *testing.T) {
	_, _, err := AcquireWorkspace(t.TempDir(), " ", false)
	assert.Error(t, err)
}
