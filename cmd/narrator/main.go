package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"video-narrator/config"
	"video-narrator/internal/appcore"
	"video-narrator/internal/deps"
	"video-narrator/internal/service"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.Version || opts.Diagnose {
		if opts.Version {
			printVersion(stdout)
		}
		if opts.Diagnose {
			if opts.Version {
				fmt.Fprintln(stdout)
			}
			printDiagnose(stdout)
		}
		return 0
	}

	config.LoadDotEnv()
	log.InitLoggerWithLevel(zapcore.WarnLevel)
	defer log.GetLogger().Sync()

	if _, err = config.LoadOrCreateConfig(); err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if err = config.CheckConfig(); err != nil {
		fmt.Fprintln(stderr, describeError(err))
		return 1
	}

	states := deps.ResolveDependencyInventory()
	deps.ApplyResolvedPaths(states)
	if err = deps.CheckDependencies(states); err != nil {
		fmt.Fprintln(stderr, deps.FormatDependencyReport(states))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := opts.request(config.Conf.App.OutputDir)
	reporter := appcore.ReporterFunc(func(event appcore.RunEvent) {
		fmt.Fprintf(stderr, "[%3d%%] %s\n", event.Stage.Percent(), event.Stage)
	})

	result, err := service.NewService(config.Conf).Run(ctx, req, reporter)
	if err != nil {
		log.GetLogger().Error("narration failed", zap.String("run_id", req.RunID), zap.Error(err))
		fmt.Fprintln(stderr, describeError(err))
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err = enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "write result: %v\n", err)
		return 1
	}
	return 0
}

func (o cliOptions) request(defaultOutputDir string) appcore.RunRequest {
	outputRoot := o.OutputDir
	if outputRoot == "" {
		outputRoot = defaultOutputDir
	}
	return appcore.RunRequest{
		RunID:        service.NewRunID(),
		Source:       o.Source,
		OutputRoot:   outputRoot,
		OutputFormat: o.Format,
		Mux:          o.Mux,
	}
}

func describeError(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Detail != "" {
		return fmt.Sprintf("%s (%s)", err.Error(), appErr.Detail)
	}
	return err.Error()
}
