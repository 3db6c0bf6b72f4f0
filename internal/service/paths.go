package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"video-narrator/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func resolveRunRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.RunRootFor(dirs), nil
}

func resolveWorkspaceRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.WorkspaceRootFor(dirs), nil
}

func resolveUploadRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.UploadRootFor(dirs), nil
}

// ArtifactDownloadPath maps a file inside the run root to the slash path
// the API serves it under, e.g. runs/clip_20240101-101010_ab12/narration.wav.
func ArtifactDownloadPath(localPath string) (string, error) {
	runRoot, err := resolveRunRoot()
	if err != nil {
		return "", err
	}

	cleanedLocalPath := filepath.Clean(localPath)
	relPath, err := filepath.Rel(runRoot, cleanedLocalPath)
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("run artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("run artifact path %q is outside run root %q", localPath, runRoot)
	}
	return filepath.ToSlash(filepath.Join(appdirs.RunRootName, relPath)), nil
}

// ArtifactLocalPath is the inverse of ArtifactDownloadPath. It rejects any
// path that would leave the run root.
func ArtifactLocalPath(downloadPath string) (string, error) {
	runRoot, err := resolveRunRoot()
	if err != nil {
		return "", err
	}
	rel := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+downloadPath)), "/")
	rel = strings.TrimPrefix(rel, appdirs.RunRootName+"/")
	if rel == "" || rel == "." || rel == appdirs.RunRootName {
		return "", fmt.Errorf("download path %q is not a file path", downloadPath)
	}
	local := filepath.Join(runRoot, filepath.FromSlash(rel))
	if _, err := ArtifactDownloadPath(local); err != nil {
		return "", err
	}
	return local, nil
}
