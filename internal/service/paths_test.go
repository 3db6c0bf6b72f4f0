package service

import (
	"path/filepath"
	"testing"

	"video-narrator/internal/appdirs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestDirs(t *testing.T) appdirs.Paths {
	t.Helper()
	tempDir := t.TempDir()
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	paths := appdirs.Paths{
		OutputDir: filepath.Join(tempDir, "output-root"),
		CacheDir:  filepath.Join(tempDir, "cache-root"),
	}
	appDirsResolver = func() (appdirs.Paths, error) {
		return paths, nil
	}
	return paths
}

func TestResolveRunRootUsesOutputDir(t *testing.T) {
	paths := useTestDirs(t)

	got, err := resolveRunRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.OutputDir, "runs"), got)

	ws, err := resolveWorkspaceRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.CacheDir, "workspaces"), ws)
}

func TestArtifactDownloadPath(t *testing.T) {
	paths := useTestDirs(t)

	local := filepath.Join(paths.OutputDir, "runs", "clip_20240101-101010_ab12", "narration.wav")
	got, err := ArtifactDownloadPath(local)
	require.NoError(t, err)
	assert.Equal(t, "runs/clip_20240101-101010_ab12/narration.wav", got)

	back, err := ArtifactLocalPath(got)
	require.NoError(t, err)
	assert.Equal(t, local, back)
}

func TestArtifactDownloadPathRejectsOutsideRunRoot(t *testing.T) {
	paths := useTestDirs(t)

	_, err := ArtifactDownloadPath(filepath.Join(paths.CacheDir, "narration.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside run root")
}

func TestArtifactLocalPathStaysInsideRunRoot(t *testing.T) {
	paths := useTestDirs(t)

	got, err := ArtifactLocalPath("runs/../../cache-root/narrator.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.OutputDir, "runs", "cache-root", "narrator.db"), got)

	_, err = ArtifactLocalPath("runs")
	assert.Error(t, err)
}
