package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"video-narrator/internal/appcore"
	"video-narrator/internal/service"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
)

// Executor runs one narration request to completion.
type Executor interface {
	ExecuteRun(ctx context.Context, req appcore.RunRequest, reporter appcore.Reporter) (*service.RunResult, error)
}

type TaskHandlers struct {
	executor Executor
}

func NewTaskHandlers(executor Executor) *TaskHandlers {
	return &TaskHandlers{executor: executor}
}

// HandleNarrationRun executes a queued run. Failures that a retry cannot
// fix are not retried.
func (h *TaskHandlers) HandleNarrationRun(ctx context.Context, t *asynq.Task) error {
	var req appcore.RunRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing narration run",
		zap.String("run_id", req.RunID),
		zap.String("source", req.Source))

	_, err := h.executor.ExecuteRun(ctx, req, nil)
	if err != nil {
		if apperrors.IsFatal(err) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.GetLogger().Info("[Queue] Narration run completed", zap.String("run_id", req.RunID))
	return nil
}

func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNarrationRun, h.HandleNarrationRun)
}

// StartWorker blocks serving queued runs until the server is shut down.
func StartWorker(cfg QueueConfig, executor Executor) error {
	handlers := NewTaskHandlers(executor)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", cfg.RedisAddr),
		zap.Int("concurrency", cfg.Concurrency))

	return NewServer(cfg).Run(mux)
}
