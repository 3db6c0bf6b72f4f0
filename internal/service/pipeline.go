package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-narrator/internal/appcore"
	"video-narrator/internal/scene"
	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RunResult is everything a finished run produced.
type RunResult struct {
	RunID    string                   `json:"run_id"`
	Metadata types.VideoMetadata      `json:"metadata"`
	Scenes   []types.Scene            `json:"scenes"`
	Segments []types.NarrativeSegment `json:"narrative_segments"`
	Fallback bool                     `json:"narrative_fallback"`
	Coverage float64                  `json:"coverage"`
	Clips    []types.AudioClip        `json:"clips"`
	Timeline []types.TimelineEntry    `json:"timeline"`
	Dropped  []int                    `json:"dropped_segments,omitempty"`
	Strategy types.AssemblyStrategy   `json:"assembly_strategy"`
	Degraded bool                     `json:"degraded"`
	Outputs  *Outputs                 `json:"outputs"`
}

// Run executes the whole pipeline for one source video. Scratch files live
// in a run workspace that is released on every return path; only the
// artifacts in the run output directory survive.
func (s *Service) Run(ctx context.Context, req appcore.RunRequest, reporter appcore.Reporter) (*RunResult, error) {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "video source is required")
	}
	if req.OutputFormat == "" {
		req.OutputFormat = types.OutputFormatJSON
	}
	logger := log.ForRun(req.RunID)
	report := func(stage appcore.RunStage, msg string) {
		logger.Info("run stage", zap.String("stage", stage.String()), zap.String("msg", msg))
		if reporter != nil {
			reporter.Report(appcore.RunEvent{RunID: req.RunID, Stage: stage, Message: msg, OccurredAt: s.clock()})
		}
	}

	wsRoot, err := resolveWorkspaceRoot()
	if err != nil {
		return nil, err
	}
	workDir, release, err := AcquireWorkspace(wsRoot, req.RunID, s.Conf.App.KeepWorkspace)
	if err != nil {
		return nil, err
	}
	defer release()

	report(appcore.RunStagePreparing, "preparing input video")
	videoPath, err := s.prepareInput(ctx, req.Source, workDir)
	if err != nil {
		return nil, err
	}
	meta, err := s.probeVideo(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	result := &RunResult{RunID: req.RunID, Metadata: *meta}

	report(appcore.RunStageDetecting, "detecting scenes")
	scenes, err := s.detectScenes(ctx, videoPath, meta)
	if err != nil {
		return nil, err
	}
	scenes, err = scene.AttachKeyframes(ctx, s.Keyframes, videoPath, scenes, filepath.Join(workDir, "frames"))
	if err != nil {
		return nil, canceledOr(ctx, apperrors.Wrap(apperrors.CodeKeyframe, "keyframe extraction failed", err))
	}

	report(appcore.RunStageDescribing, "describing scenes")
	planner := s.planner()
	summaries, err := planner.DescribeScenes(ctx, scenes)
	if err != nil {
		return nil, err
	}
	for i := range scenes {
		scenes[i].VisualSummary = summaries[i]
	}
	result.Scenes = scenes

	report(appcore.RunStagePlanning, "planning narrative")
	segments, fallback, err := planner.PlanFromSummaries(ctx, scenes, summaries, meta.Duration)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, apperrors.New(apperrors.CodeNarrativeFailed, "narrative is empty")
	}
	result.Segments = segments
	result.Fallback = fallback
	result.Coverage = Coverage(segments, meta.Duration)

	report(appcore.RunStageSynthesizing, "synthesizing speech")
	voice, err := s.voice(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeVoiceNotFound, "resolve voice failed", err)
	}
	assembly, err := s.speechAssembler().Assemble(ctx, segments, voice, workDir, filepath.Join(workDir, combinedAudioName))
	if err != nil {
		return nil, err
	}
	result.Clips = assembly.Clips
	result.Timeline = assembly.Timeline
	result.Dropped = assembly.Dropped
	result.Strategy = assembly.Strategy
	result.Degraded = assembly.Strategy.Degraded() || len(assembly.Dropped) > 0
	if result.Degraded {
		logger.Warn("narration audio is incomplete",
			zap.String("strategy", string(assembly.Strategy)), zap.Ints("dropped", assembly.Dropped))
	}

	report(appcore.RunStageRendering, "writing outputs")
	outputRoot := req.OutputRoot
	if outputRoot == "" {
		if outputRoot, err = resolveRunRoot(); err != nil {
			return nil, err
		}
	}
	runDir, err := CreateRunDir(outputRoot, req.Source, s.clock())
	if err != nil {
		return nil, err
	}
	assembler := &OutputAssembler{Muxer: s.Muxer}
	outputs, err := assembler.WriteArtifacts(runDir, req.OutputFormat, segments, assembly.CombinedPath)
	if err != nil {
		return nil, err
	}
	if req.Mux {
		report(appcore.RunStageMuxing, "muxing narrated video")
		assembler.MuxVideo(ctx, outputs, videoPath)
	}
	result.Outputs = outputs
	return result, nil
}

func (s *Service) prepareInput(ctx context.Context, source, workDir string) (string, error) {
	if util.IsRemoteURL(source) {
		inputDir := filepath.Join(workDir, "input")
		if err := os.MkdirAll(inputDir, 0o755); err != nil {
			return "", apperrors.Wrap(apperrors.CodeFileWriteError, "create input directory failed", err)
		}
		target := filepath.Join(inputDir, util.RemoteFileName(source))
		download := s.download
		if download == nil {
			download = util.DownloadFile
		}
		if err := download(ctx, source, target, s.Conf.App.Proxy); err != nil {
			return "", canceledOr(ctx, apperrors.Wrap(apperrors.CodeVideoDownload, "download video failed", err))
		}
		return target, nil
	}

	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return "", apperrors.Wrap(apperrors.CodeVideoNotFound, "video file not found: "+source, err)
	}
	return source, nil
}

func (s *Service) probeVideo(ctx context.Context, videoPath string) (*types.VideoMetadata, error) {
	probe := s.probe
	if probe == nil {
		probe = util.ProbeVideo
	}
	meta, err := probe(ctx, videoPath)
	if err != nil {
		return nil, canceledOr(ctx, apperrors.Wrap(apperrors.CodeVideoProbe, "read video metadata failed", err))
	}
	if meta.Duration <= 0 {
		return nil, apperrors.New(apperrors.CodeVideoProbe, "video has no duration")
	}
	return meta, nil
}

// detectScenes never fails because of the detector itself: an unusable
// detection degrades to one scene spanning the whole video.
func (s *Service) detectScenes(ctx context.Context, videoPath string, meta *types.VideoMetadata) ([]types.Scene, error) {
	var det *types.SceneDetection
	if s.Detector != nil {
		var err error
		det, err = s.Detector.DetectScenes(ctx, videoPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.Wrap(apperrors.CodeCanceled, "scene detection canceled", ctx.Err())
			}
			log.GetLogger().Warn("scene detection failed, treating the video as one scene", zap.Error(err))
			det = nil
		}
	}
	if det != nil && det.FPS <= 0 {
		det.FPS = meta.FPS
	}

	scenes, err := scene.FromDetection(det, meta.Duration)
	if err != nil {
		log.GetLogger().Warn("scene detection unusable, treating the video as one scene", zap.Error(err))
		scenes, err = scene.FromDetection(nil, meta.Duration)
	}
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, apperrors.ErrNoScenes
	}
	if err := scene.Validate(scenes, meta.Duration, frameInterval(meta.FPS)); err != nil {
		log.GetLogger().Warn("scene timeline has gaps", zap.Error(err))
	}
	log.GetLogger().Info("scenes detected", zap.Int("count", len(scenes)),
		zap.Float64s("starts", lo.Map(scenes, func(sc types.Scene, _ int) float64 { return sc.StartTime })))
	return scenes, nil
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func frameInterval(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return 1 / fps
}

// canceledOr reports cancellation in preference to whatever error the
// interrupted call produced.
func canceledOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.Wrap(apperrors.CodeCanceled, "run canceled", ctxErr)
	}
	return err
}
