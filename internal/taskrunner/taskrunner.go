package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"video-narrator/internal/appcore"
	"video-narrator/internal/service"
	"video-narrator/log"
)

const (
	defaultQueueSize   = 16
	defaultConcurrency = 1
)

var (
	ErrRunnerStopped = errors.New("run runner stopped")
	ErrQueueFull     = errors.New("run queue is full")
)

// Config controls in-process runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
	// Reporter receives every stage event of every run. Optional.
	Reporter appcore.Reporter
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// Executor runs one narration request to completion.
type Executor interface {
	ExecuteRun(ctx context.Context, req appcore.RunRequest, reporter appcore.Reporter) (*service.RunResult, error)
}

// Runner executes queued runs with in-memory workers.
type Runner struct {
	executor Executor
	config   Config

	queue  chan appcore.RunRequest
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

var _ appcore.Submitter = (*Runner)(nil)

// New creates and starts a runner.
func New(executor Executor, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		executor: executor,
		config:   cfg,
		queue:    make(chan appcore.RunRequest, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit queues a run without blocking. A full queue is reported rather
// than waited on.
func (r *Runner) Submit(ctx context.Context, req appcore.RunRequest) error {
	if req.Source == "" {
		return errors.New("run source is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- req:
		log.GetLogger().Info("[TaskRunner] run submitted",
			zap.String("run_id", req.RunID),
			zap.String("source", req.Source))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case req := <-r.queue:
			r.processRun(workerID, req)
		}
	}
}

func (r *Runner) processRun(workerID int, req appcore.RunRequest) {
	if r.executor == nil {
		log.GetLogger().Error("[TaskRunner] no executor configured", zap.String("run_id", req.RunID))
		return
	}

	result, err := r.executor.ExecuteRun(r.ctx, req, r.config.Reporter)
	if err != nil {
		log.GetLogger().Error("[TaskRunner] run failed",
			zap.Int("worker_id", workerID),
			zap.String("run_id", req.RunID),
			zap.Error(err))
		return
	}

	fields := []zap.Field{zap.Int("worker_id", workerID), zap.String("run_id", req.RunID)}
	if result != nil && result.Outputs != nil {
		fields = append(fields, zap.String("output_dir", result.Outputs.Dir))
	}
	log.GetLogger().Info("[TaskRunner] run completed", fields...)
}

// Close stops workers and rejects new runs. A run in progress sees its
// context canceled.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}
