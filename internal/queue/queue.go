// Package queue runs narration requests through Asynq so a separate worker
// process can execute them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"video-narrator/config"
	"video-narrator/internal/appcore"
	"video-narrator/log"
)

const TypeNarrationRun = "narration:run"

const (
	runMaxRetry = 2
	runTimeout  = 60 * time.Minute
)

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

func ConfigFrom(conf config.Queue) QueueConfig {
	return QueueConfig{
		RedisAddr:     conf.RedisAddr,
		RedisPassword: conf.RedisPassword,
		RedisDB:       conf.RedisDB,
		Concurrency:   conf.Concurrency,
	}
}

func (c QueueConfig) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Queue enqueues narration runs.
type Queue struct {
	client *asynq.Client
	config QueueConfig
}

var _ appcore.Submitter = (*Queue)(nil)

func NewQueue(cfg QueueConfig) *Queue {
	return &Queue{
		client: asynq.NewClient(cfg.redisOpt()),
		config: cfg,
	}
}

// Ping checks that Redis answers before any run is accepted.
func Ping(ctx context.Context, cfg QueueConfig) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", cfg.RedisAddr, err)
	}
	return nil
}

// NewNarrationTask builds the task for one run. The run id doubles as the
// task id so a run cannot be queued twice while pending.
func NewNarrationTask(req appcore.RunRequest) (*asynq.Task, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeNarrationRun, data,
		asynq.MaxRetry(runMaxRetry),
		asynq.Timeout(runTimeout),
		asynq.Queue("default"),
		asynq.TaskID(req.RunID),
	), nil
}

func (q *Queue) Submit(ctx context.Context, req appcore.RunRequest) error {
	task, err := NewNarrationTask(req)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue run: %w", err)
	}

	log.GetLogger().Info("Run enqueued",
		zap.String("run_id", req.RunID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// NewServer builds the worker side of the queue.
func NewServer(cfg QueueConfig) *asynq.Server {
	return asynq.NewServer(
		cfg.redisOpt(),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				// 10s, 20s, 40s, ...
				return time.Duration(10<<uint(n)) * time.Second
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Run task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)
}
