package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"video-narrator/internal/appcore"
	"video-narrator/internal/dto"
	"video-narrator/internal/response"
	"video-narrator/internal/script"
	"video-narrator/internal/service"
	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"
)

const historyLimit = 200

// StartNarration accepts a multipart upload ("file") or a video_url and
// queues a run for it.
func (h *Handler) StartNarration(c *gin.Context) {
	var req dto.StartNarrationReq
	if err := c.ShouldBind(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "invalid parameters", err))
		return
	}
	if req.OutputFormat == "" {
		req.OutputFormat = types.OutputFormatJSON
	}
	req.OutputFormat = strings.ToLower(req.OutputFormat)
	if !script.IsSupported(req.OutputFormat) {
		response.ErrorResponse(c, apperrors.New(apperrors.CodeUnsupportedForm, "output_format must be one of "+strings.Join(script.Formats, ", ")))
		return
	}

	runReq := appcore.RunRequest{
		RunID:        service.NewRunID(),
		OutputFormat: req.OutputFormat,
		Mux:          req.MuxVideo,
	}

	file, err := c.FormFile("file")
	switch {
	case err == nil:
		dir := filepath.Join(uploadRoot(), runReq.RunID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "save upload failed", err))
			return
		}
		savePath := filepath.Join(dir, util.SanitizeFileName(file.Filename))
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "save upload failed", err))
			return
		}
		runReq.Source = savePath
	case strings.TrimSpace(req.VideoUrl) != "":
		if !util.IsRemoteURL(req.VideoUrl) {
			response.ErrorResponse(c, apperrors.New(apperrors.CodeUnsupportedURL, "video_url must be an http(s) URL"))
			return
		}
		runReq.Source = strings.TrimSpace(req.VideoUrl)
	default:
		response.ErrorResponse(c, apperrors.New(apperrors.CodeInvalidParams, "either file or video_url is required"))
		return
	}

	log.GetLogger().Info("StartNarration received request",
		zap.String("run_id", runReq.RunID), zap.String("source", runReq.Source),
		zap.String("format", runReq.OutputFormat), zap.Bool("mux", runReq.Mux))

	if err := h.queue(c.Request.Context(), runReq); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.StartNarrationResData{
		RunId:     runReq.RunID,
		StatusUrl: "/api/narrate/" + runReq.RunID,
	})
}

func (h *Handler) queue(ctx context.Context, req appcore.RunRequest) error {
	req, err := service.QueueRun(req)
	if err != nil {
		return err
	}
	if h.Submitter == nil {
		return apperrors.New(apperrors.CodeUnknown, "no run executor configured")
	}
	if err := h.Submitter.Submit(ctx, req); err != nil {
		log.GetLogger().Error("submit run failed", zap.String("run_id", req.RunID), zap.Error(err))
		if run, getErr := storage.GetRun(req.RunID); getErr == nil {
			run.Status = types.RunStatusFailed
			run.Stage = appcore.RunStageFailed.String()
			run.StatusMsg = "not accepted"
			run.FailReason = err.Error()
			_ = storage.SaveRun(run)
		}
		return apperrors.Wrap(apperrors.CodeUnknown, "run was not accepted", err)
	}
	return nil
}

func (h *Handler) GetNarration(c *gin.Context) {
	run, err := storage.GetRun(c.Param("runId"))
	if err != nil {
		response.ErrorResponse(c, lookupError(err))
		return
	}
	response.Success(c, toStatus(run))
}

func (h *Handler) GetHistory(c *gin.Context) {
	runs, err := storage.GetRunHistory(historyLimit)
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeDBError, "load history failed", err))
		return
	}
	response.Success(c, lo.Map(runs, func(run types.NarrationRun, _ int) dto.NarrationStatus {
		return toStatus(&run)
	}))
}

func (h *Handler) DeleteNarration(c *gin.Context) {
	runId := c.Param("runId")
	if err := service.DeleteRun(runId); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	_ = os.RemoveAll(filepath.Join(uploadRoot(), runId))
	response.Success(c, nil)
}

// RetryNarration queues a failed run again under the same id.
func (h *Handler) RetryNarration(c *gin.Context) {
	req, err := service.RetryRequest(c.Param("runId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if err := h.queue(c.Request.Context(), req); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.StartNarrationResData{
		RunId:     req.RunID,
		StatusUrl: "/api/narrate/" + req.RunID,
	})
}

func (h *Handler) DownloadFile(c *gin.Context) {
	requestedFile := c.Param("filepath")
	if hasParentTraversal(requestedFile) {
		c.JSON(403, response.FromError(apperrors.New(apperrors.CodeInvalidParams, "path traversal is not allowed")))
		return
	}

	localFilePath, ok := resolveDownloadPath(requestedFile)
	if !ok {
		c.JSON(404, response.FromError(apperrors.ErrFileNotFound))
		return
	}
	if info, err := os.Stat(localFilePath); err != nil || info.IsDir() {
		c.JSON(404, response.FromError(apperrors.ErrFileNotFound))
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return apperrors.Wrap(apperrors.CodeDBError, "load run failed", err)
}

func statusName(status uint8) string {
	switch status {
	case types.RunStatusQueued:
		return "queued"
	case types.RunStatusRunning:
		return "running"
	case types.RunStatusSucceeded:
		return "succeeded"
	case types.RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func stagePercent(run *types.NarrationRun) int {
	if run.IsTerminal() {
		return 100
	}
	for s := appcore.RunStageQueued; s <= appcore.RunStageCanceled; s++ {
		if s.String() == run.Stage {
			return s.Percent()
		}
	}
	return 0
}

func toStatus(run *types.NarrationRun) dto.NarrationStatus {
	status := dto.NarrationStatus{
		RunId:          run.RunId,
		Source:         run.Source,
		Status:         statusName(run.Status),
		Stage:          run.Stage,
		ProcessPercent: stagePercent(run),
		StatusMsg:      run.StatusMsg,
		FailReason:     run.FailReason,
		Duration:       run.Duration,
		SceneCount:     run.SceneCount,
		SegmentCount:   run.SegmentCount,
		ClipCount:      run.ClipCount,
		Coverage:       run.Coverage,
		Strategy:       run.Strategy,
		Degraded:       run.Degraded,
		MuxError:       run.MuxError,
		CreateTime:     run.CreateTime,
		UpdateTime:     run.UpdateTime,
	}
	for _, p := range []string{run.ScriptPath, run.AudioPath, run.VideoPath} {
		if p == "" {
			continue
		}
		downloadPath, err := service.ArtifactDownloadPath(p)
		if err != nil {
			log.GetLogger().Warn("artifact outside run root", zap.String("path", p), zap.Error(err))
			continue
		}
		status.Files = append(status.Files, dto.NarrationFile{
			Name:        filepath.Base(p),
			DownloadUrl: "/api/file/" + downloadPath,
		})
	}
	return status
}
