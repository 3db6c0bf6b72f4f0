package handler

import (
	"context"
	"sync"

	"video-narrator/config"
	"video-narrator/internal/appcore"
	"video-narrator/internal/service"
)

// Handler serves the narration API. Runs are handed to Submitter, which is
// either the in-process runner or the Redis queue.
type Handler struct {
	mu        sync.RWMutex
	service   *service.Service
	Submitter appcore.Submitter
}

func NewHandler(svc *service.Service, submitter appcore.Submitter) *Handler {
	return &Handler{service: svc, Submitter: submitter}
}

// Service returns the current service, rebuilt after a config update.
func (h *Handler) Service() *service.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.service
}

func (h *Handler) reloadService(conf config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.service = service.NewService(conf)
}

// ExecuteRun lets a runner execute with whatever service is current.
func (h *Handler) ExecuteRun(ctx context.Context, req appcore.RunRequest, reporter appcore.Reporter) (*service.RunResult, error) {
	return h.Service().ExecuteRun(ctx, req, reporter)
}
