package handler

import (
	"os"
	"path/filepath"
	"strings"

	"video-narrator/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func runRootCandidates() []string {
	candidates := make([]string, 0, 2)
	if dirs, err := appDirsResolver(); err == nil {
		candidates = append(candidates, appdirs.RunRootFor(dirs))
	}
	candidates = append(candidates, appdirs.RunRootName)
	return uniquePaths(candidates...)
}

func uploadRoot() string {
	if dirs, err := appDirsResolver(); err == nil {
		return appdirs.UploadRootFor(dirs)
	}
	return appdirs.UploadRootName
}

// resolveDownloadPath maps runs/<dir>/<file> onto a file inside one of the
// run roots. Anything else, including parent traversal, is refused.
func resolveDownloadPath(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	requested = strings.TrimPrefix(requested, "/")
	if hasParentTraversal(requested) {
		return "", false
	}
	requested = filepath.ToSlash(filepath.Clean(requested))

	prefix := appdirs.RunRootName + "/"
	if !strings.HasPrefix(requested, prefix) {
		return "", false
	}
	relativePath := filepath.FromSlash(strings.TrimPrefix(requested, prefix))

	var fallback string
	for _, rootDir := range runRootCandidates() {
		candidate := filepath.Clean(filepath.Join(rootDir, relativePath))
		if !isPathWithinRoot(rootDir, candidate) || candidate == filepath.Clean(rootDir) {
			continue
		}
		if fallback == "" {
			fallback = candidate
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	if fallback == "" {
		return "", false
	}
	return fallback, true
}

func uniquePaths(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	paths := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := strings.TrimSpace(value)
		if cleaned == "" {
			continue
		}
		cleaned = filepath.Clean(cleaned)
		if _, exists := seen[cleaned]; exists {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}
	return paths
}

func isPathWithinRoot(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasParentTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
