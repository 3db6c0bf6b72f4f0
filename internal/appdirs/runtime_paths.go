package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	RunRootName       = "runs"
	UploadRootName    = "uploads"
	WorkspaceRootName = "workspaces"
	dbFileName        = "narrator.db"
)

// RunRootFor is where finished run output directories live.
func RunRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), RunRootName)
}

func RunDirFor(paths Paths, dirName string) string {
	return filepath.Join(RunRootFor(paths), dirName)
}

func UploadRootFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), UploadRootName)
}

// WorkspaceRootFor holds the per-run scratch directories.
func WorkspaceRootFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), WorkspaceRootName)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func ResolveRunRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return RunRootFor(paths), nil
}

func ResolveUploadRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return UploadRootFor(paths), nil
}

func ResolveWorkspaceRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return WorkspaceRootFor(paths), nil
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
