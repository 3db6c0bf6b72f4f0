package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"video-narrator/config"
	"video-narrator/internal/appcore"
	"video-narrator/internal/appdirs"
	"video-narrator/internal/deps"
	"video-narrator/internal/handler"
	"video-narrator/internal/maintenance"
	"video-narrator/internal/queue"
	"video-narrator/internal/router"
	"video-narrator/internal/service"
	"video-narrator/internal/storage"
	"video-narrator/internal/taskrunner"
	"video-narrator/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	log.InitLogger()
	defer log.GetLogger().Sync()

	if err := run(); err != nil {
		log.GetLogger().Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	if _, err := config.LoadOrCreateConfig(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.CheckConfig(); err != nil {
		return err
	}

	states := deps.ResolveDependencyInventory()
	deps.ApplyResolvedPaths(states)
	if err := deps.CheckDependencies(states); err != nil {
		log.GetLogger().Error(deps.FormatDependencyReport(states))
		return err
	}

	storage.InitDB()

	hdl := handler.NewHandler(service.NewService(config.Conf), nil)
	submitter, closeSubmitter, err := newSubmitter(hdl)
	if err != nil {
		return err
	}
	defer closeSubmitter()
	hdl.Submitter = submitter

	janitor := newJanitor()
	if err = janitor.Start(maintenance.DefaultSchedule); err != nil {
		log.GetLogger().Warn("failed to start workspace janitor", zap.Error(err))
	}
	defer janitor.Stop()

	engine := gin.Default()
	router.SetupRouter(engine, hdl)

	addr := fmt.Sprintf("%s:%d", config.Conf.Server.Host, config.Conf.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	log.GetLogger().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSubmitter picks the redis queue when enabled and reachable, otherwise
// runs execute in-process.
func newSubmitter(hdl *handler.Handler) (appcore.Submitter, func(), error) {
	if config.Conf.Queue.Enabled {
		qcfg := queue.ConfigFrom(config.Conf.Queue)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.Ping(ctx, qcfg); err != nil {
			return nil, nil, fmt.Errorf("queue enabled: %w", err)
		}
		q := queue.NewQueue(qcfg)
		log.GetLogger().Info("runs dispatched to redis queue", zap.String("redis_addr", qcfg.RedisAddr))
		return q, func() { _ = q.Close() }, nil
	}

	// In-process runs do not survive a restart.
	if count, err := storage.MarkStaleRuns(); err != nil {
		log.GetLogger().Warn("failed to mark stale runs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked stale runs as failed", zap.Int64("count", count))
	}

	runner := taskrunner.New(hdl, taskrunner.Config{
		QueueSize:   config.Conf.App.MaxRunQueue,
		Concurrency: config.Conf.App.RunWorkers,
	})
	return runner, runner.Close, nil
}

func newJanitor() *maintenance.Janitor {
	var roots []string
	if root, err := appdirs.ResolveWorkspaceRoot(); err == nil {
		roots = append(roots, root)
	}
	uploadRoot, err := appdirs.ResolveUploadRoot()
	if err == nil {
		roots = append(roots, uploadRoot)
	}
	retention := time.Duration(config.Conf.App.WorkspaceRetentionHours) * time.Hour
	janitor := maintenance.NewJanitor(retention, roots...)
	// uploads are named after their run; keep the ones a retry still needs
	janitor.Keep = func(path string) bool {
		return uploadRoot != "" && filepath.Dir(path) == filepath.Clean(uploadRoot) &&
			service.UploadStillNeeded(filepath.Base(path))
	}
	return janitor
}
