package service

import (
	"context"
	"errors"
	"os"
	"strings"

	"video-narrator/internal/appcore"
	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewRunID returns a short random run id that is safe in paths.
func NewRunID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// QueueRun stores a queued record for req, assigning a run id when it has
// none. The returned request is what should be submitted.
func QueueRun(req appcore.RunRequest) (appcore.RunRequest, error) {
	if strings.TrimSpace(req.Source) == "" {
		return req, apperrors.New(apperrors.CodeInvalidParams, "video source is required")
	}
	if req.RunID == "" {
		req.RunID = NewRunID()
	}
	if req.OutputFormat == "" {
		req.OutputFormat = types.OutputFormatJSON
	}
	run := &types.NarrationRun{
		RunId:        req.RunID,
		Source:       req.Source,
		OutputFormat: req.OutputFormat,
		Mux:          req.Mux,
		Status:       types.RunStatusQueued,
		Stage:        appcore.RunStageQueued.String(),
		StatusMsg:    "queued",
	}
	if err := storage.SaveRun(run); err != nil {
		return req, apperrors.Wrap(apperrors.CodeDBError, "save run failed", err)
	}
	return req, nil
}

// RetryRequest rebuilds the request of a failed run so it can be queued
// again under the same id.
func RetryRequest(runID string) (appcore.RunRequest, error) {
	run, err := storage.GetRun(runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appcore.RunRequest{}, apperrors.ErrNotFound
		}
		return appcore.RunRequest{}, apperrors.Wrap(apperrors.CodeDBError, "load run failed", err)
	}
	if run.Status != types.RunStatusFailed {
		return appcore.RunRequest{}, apperrors.New(apperrors.CodeInvalidParams, "only failed runs can be retried")
	}
	return appcore.RunRequest{
		RunID:        run.RunId,
		Source:       run.Source,
		OutputFormat: run.OutputFormat,
		Mux:          run.Mux,
	}, nil
}

// UploadStillNeeded reports whether the upload stored for runID belongs to a
// run that has not succeeded, so a retry would still read it.
func UploadStillNeeded(runID string) bool {
	if storage.DB == nil {
		return false
	}
	run, err := storage.GetRun(runID)
	if err != nil {
		return false
	}
	return run.Status != types.RunStatusSucceeded
}

// DeleteRun removes the stored record and the run's output directory.
// Directories outside the run root are left alone.
func DeleteRun(runID string) error {
	run, err := storage.GetRun(runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(apperrors.CodeDBError, "load run failed", err)
	}
	if run.Status == types.RunStatusRunning {
		return apperrors.New(apperrors.CodeInvalidParams, "run is still in progress")
	}
	if run.OutputDir != "" {
		if _, err := ArtifactDownloadPath(run.OutputDir); err == nil {
			if err := os.RemoveAll(run.OutputDir); err != nil {
				log.GetLogger().Warn("remove run output failed", zap.String("dir", run.OutputDir), zap.Error(err))
			}
		} else {
			log.GetLogger().Warn("not removing output outside run root", zap.String("dir", run.OutputDir))
		}
	}
	if err := storage.DeleteRun(runID); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, "delete run failed", err)
	}
	return nil
}

// ExecuteRun runs the pipeline and keeps the stored run record in step with
// it. Without a database the run still executes, unrecorded.
func (s *Service) ExecuteRun(ctx context.Context, req appcore.RunRequest, reporter appcore.Reporter) (*RunResult, error) {
	if req.RunID == "" {
		req.RunID = NewRunID()
	}
	persist := storage.DB != nil
	logger := log.ForRun(req.RunID)

	record := &types.NarrationRun{RunId: req.RunID}
	if persist {
		if existing, err := storage.GetRun(req.RunID); err == nil {
			record = existing
		}
	}
	record.Source = req.Source
	record.OutputFormat = req.OutputFormat
	record.Mux = req.Mux
	record.Status = types.RunStatusRunning
	record.Stage = appcore.RunStagePreparing.String()
	record.StatusMsg = "running"
	record.FailReason = ""
	save := func() {
		if !persist {
			return
		}
		if err := storage.SaveRun(record); err != nil {
			logger.Error("save run failed", zap.Error(err))
		}
	}
	save()

	tracking := appcore.ReporterFunc(func(event appcore.RunEvent) {
		if persist {
			if err := storage.UpdateRunStage(event.RunID, event.Stage.String(), event.Message); err != nil {
				logger.Warn("update run stage failed", zap.Error(err))
			}
		}
		if reporter != nil {
			reporter.Report(event)
		}
	})

	result, err := s.Run(ctx, req, tracking)
	if err != nil {
		stage := appcore.RunStageFailed
		if apperrors.GetCode(err) == apperrors.CodeCanceled || errors.Is(err, context.Canceled) {
			stage = appcore.RunStageCanceled
		}
		record.Status = types.RunStatusFailed
		record.Stage = stage.String()
		record.StatusMsg = apperrors.GetMessage(err)
		record.FailReason = err.Error()
		save()
		logger.Error("run failed", zap.Error(err))
		tracking.Report(appcore.RunEvent{RunID: req.RunID, Stage: stage, Message: record.StatusMsg, Err: err, OccurredAt: s.clock()})
		return nil, err
	}

	applyResult(record, result)
	save()
	logger.Info("run finished",
		zap.String("outputDir", result.Outputs.Dir),
		zap.Int("clips", len(result.Clips)),
		zap.Bool("degraded", result.Degraded))
	tracking.Report(appcore.RunEvent{RunID: req.RunID, Stage: appcore.RunStageSucceeded, Message: record.StatusMsg, OccurredAt: s.clock()})
	return result, nil
}

func applyResult(record *types.NarrationRun, result *RunResult) {
	record.Status = types.RunStatusSucceeded
	record.Stage = appcore.RunStageSucceeded.String()
	record.StatusMsg = "completed"
	if result.Degraded {
		record.StatusMsg = "completed with degraded audio"
	}
	record.Duration = result.Metadata.Duration
	record.SceneCount = len(result.Scenes)
	record.SegmentCount = len(result.Segments)
	record.ClipCount = len(result.Clips)
	record.Coverage = result.Coverage
	record.Strategy = string(result.Strategy)
	record.Degraded = result.Degraded
	if out := result.Outputs; out != nil {
		record.OutputDir = out.Dir
		record.ScriptPath = out.Script
		record.AudioPath = out.Audio
		record.VideoPath = out.Video
		record.MuxError = out.MuxError
	}
}
