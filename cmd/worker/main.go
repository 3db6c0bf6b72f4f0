package main

import (
	"os"

	"go.uber.org/zap"

	"video-narrator/config"
	"video-narrator/internal/deps"
	"video-narrator/internal/queue"
	"video-narrator/internal/service"
	"video-narrator/internal/storage"
	"video-narrator/log"
)

func main() {
	config.LoadDotEnv()
	log.InitLogger()
	defer log.GetLogger().Sync()

	if _, err := config.LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("invalid config", zap.Error(err))
		os.Exit(1)
	}

	states := deps.ResolveDependencyInventory()
	deps.ApplyResolvedPaths(states)
	if err := deps.CheckDependencies(states); err != nil {
		log.GetLogger().Error(deps.FormatDependencyReport(states))
		os.Exit(1)
	}

	storage.InitDB()

	svc := service.NewService(config.Conf)
	if err := queue.StartWorker(queue.ConfigFrom(config.Conf.Queue), svc); err != nil {
		log.GetLogger().Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
