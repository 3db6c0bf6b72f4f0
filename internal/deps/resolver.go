// Package deps locates the external binaries the pipeline needs.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"video-narrator/internal/storage"
	apperrors "video-narrator/pkg/errors"
)

// Tool is one required binary. Configured points at the storage variable
// that holds a user-set location, if any.
type Tool struct {
	Name       string
	Configured *string
	Hint       string
}

// ToolStatus is where a Tool was found, or why it was not.
type ToolStatus struct {
	Tool
	Path    string
	Found   bool
	Missing bool
	Err     error
}

// Lookup resolves tools. Its funcs are swapped in tests.
type Lookup struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewLookup() Lookup {
	return Lookup{LookPath: exec.LookPath, AbsPath: filepath.Abs, Stat: os.Stat}
}

// Find prefers a configured location and otherwise searches PATH.
func (l Lookup) Find(tool Tool) ToolStatus {
	status := ToolStatus{Tool: tool}
	configured := ""
	if tool.Configured != nil {
		configured = strings.TrimSpace(*tool.Configured)
	}

	var err error
	if configured == "" {
		status.Path, err = l.LookPath(tool.Name)
	} else {
		status.Path, err = l.findConfigured(configured)
	}
	if err != nil {
		status.Err = err
		status.Missing = isNotFound(err)
		return status
	}
	status.Found = true
	return status
}

func (l Lookup) findConfigured(configured string) (string, error) {
	if path, err := l.LookPath(configured); err == nil {
		return path, nil
	}
	abs, err := l.AbsPath(configured)
	if err != nil {
		return configured, err
	}
	if _, err = l.Stat(abs); err != nil {
		return abs, err
	}
	return abs, nil
}

func RequiredTools() []Tool {
	return []Tool{
		{Name: "ffmpeg", Configured: &storage.FfmpegPath, Hint: "Required for scene detection, keyframes, audio normalization and muxing."},
		{Name: "ffprobe", Configured: &storage.FfprobePath, Hint: "Required for video metadata and clip duration probing."},
	}
}

func ResolveDependencyInventory() []ToolStatus {
	lookup := NewLookup()
	tools := RequiredTools()
	statuses := make([]ToolStatus, 0, len(tools))
	for _, tool := range tools {
		statuses = append(statuses, lookup.Find(tool))
	}
	return statuses
}

// ApplyResolvedPaths writes every found path back to its storage variable
// so later exec calls do not search PATH again.
func ApplyResolvedPaths(statuses []ToolStatus) {
	for _, s := range statuses {
		if s.Found && s.Configured != nil {
			*s.Configured = s.Path
		}
	}
}

// CheckDependencies returns a CodeMissingDependency error naming every tool
// that was not found.
func CheckDependencies(statuses []ToolStatus) error {
	var missing []string
	for _, s := range statuses {
		if !s.Found {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.WrapWithDetail(apperrors.CodeMissingDependency,
		"required tools not found: "+strings.Join(missing, ", "),
		FormatDependencyReport(statuses), nil)
}

func FormatDependencyReport(statuses []ToolStatus) string {
	var b strings.Builder
	b.WriteString("Dependency status")
	for _, s := range statuses {
		state := "ok"
		switch {
		case s.Missing:
			state = "missing"
		case !s.Found:
			state = "error"
		}
		path := s.Path
		if path == "" {
			path = "unknown"
		}
		fmt.Fprintf(&b, "\n- %s: %s | path=%s", s.Name, state, path)
		if s.Err != nil {
			fmt.Fprintf(&b, "\n  error: %v", s.Err)
		}
		if !s.Found && s.Hint != "" {
			fmt.Fprintf(&b, "\n  hint: %s", s.Hint)
		}
	}
	return b.String()
}

func isNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound)
}
