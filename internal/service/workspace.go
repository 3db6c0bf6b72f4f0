package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"

	"go.uber.org/zap"
)

// AcquireWorkspace creates the scratch directory of one run. The returned
// release func removes it again unless keep is set; callers defer it right
// away so every exit path cleans up.
func AcquireWorkspace(root, runID string, keep bool) (string, func(), error) {
	if strings.TrimSpace(runID) == "" {
		return "", nil, apperrors.New(apperrors.CodeInvalidParams, "run id is empty")
	}
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, apperrors.Wrap(apperrors.CodeFileWriteError, fmt.Sprintf("create workspace %s failed", dir), err)
	}

	release := func() {
		if keep {
			log.GetLogger().Debug("keeping run workspace", zap.String("dir", dir))
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			log.GetLogger().Warn("remove run workspace failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	return dir, release, nil
}
