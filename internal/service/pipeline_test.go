package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video-narrator/config"
	"video-narrator/internal/appcore"
	"video-narrator/internal/mocks"
	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	svc       *Service
	source    string
	detector  *mocks.MockSceneDetector
	describer *mocks.MockFrameDescriber
	chat      *mocks.MockChatCompleter
	ttser     *mocks.MockTtser
	muxer     *mocks.MockMuxer
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	useTestDirs(t)

	source := filepath.Join(t.TempDir(), "harbor.mp4")
	require.NoError(t, os.WriteFile(source, []byte("not really a video"), 0o644))

	f := &pipelineFixture{
		source:    source,
		detector:  new(mocks.MockSceneDetector),
		describer: new(mocks.MockFrameDescriber),
		chat:      new(mocks.MockChatCompleter),
		ttser:     &mocks.MockTtser{Render: writeClip(0.5)},
		muxer:     new(mocks.MockMuxer),
	}
	keyframes := new(mocks.MockKeyframeExtractor)
	keyframes.On("ExtractFrame", mock.Anything, source, mock.Anything, mock.Anything).Return(nil)

	conf := config.Config{}
	conf.Tts.VoiceId = config.DefaultVoiceId
	conf.Tts.Stability = 0.5
	conf.Tts.SimilarityBoost = 0.75
	conf.Tts.Concurrency = 2
	conf.Tts.TimeoutSeconds = 5
	conf.Narrative.CoverageTolerance = 0.95

	f.svc = &Service{
		Conf:      conf,
		Chat:      f.chat,
		Describer: f.describer,
		TtsClient: f.ttser,
		Detector:  f.detector,
		Keyframes: keyframes,
		Muxer:     f.muxer,
		probe: func(_ context.Context, videoPath string) (*types.VideoMetadata, error) {
			return &types.VideoMetadata{Path: videoPath, Duration: 30, FPS: 25, FrameCount: 750, Width: 1280, Height: 720}, nil
		},
		now: func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	}
	return f
}

func (f *pipelineFixture) expectThreeScenes() {
	f.detector.On("DetectScenes", mock.Anything, f.source).Return(&types.SceneDetection{
		FPS:         25,
		TotalFrames: 750,
		Ranges:      []types.FrameRange{{Start: 0, End: 250}, {Start: 250, End: 500}, {Start: 500, End: 750}},
	}, nil)
	f.describer.On("DescribeImage", mock.Anything, mock.Anything, mock.Anything).Return("boats in a harbor", nil)
	f.chat.On("JSONCompletion", mock.Anything, mock.Anything, mock.Anything).Return(`{"segments": [
		{"scene_idx": 0, "start_time": 0, "end_time": 10, "text": "Morning in the harbor."},
		{"scene_idx": 1, "start_time": 10, "end_time": 20, "text": "Fishermen load their nets."},
		{"scene_idx": 2, "start_time": 20, "end_time": 30, "text": "The boats head out."}
	]}`, nil)
}

func TestRunThreeEqualScenes(t *testing.T) {
	f := newPipelineFixture(t)
	f.expectThreeScenes()
	f.ttser.On("Text2Speech", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var stages []appcore.RunStage
	reporter := appcore.ReporterFunc(func(e appcore.RunEvent) { stages = append(stages, e.Stage) })

	result, err := f.svc.Run(context.Background(), appcore.RunRequest{RunID: "run_test", Source: f.source, OutputFormat: types.OutputFormatJSON}, reporter)
	require.NoError(t, err)

	require.Len(t, result.Scenes, 3)
	require.Len(t, result.Segments, 3)
	total := 0.0
	for _, seg := range result.Segments {
		total += seg.Duration
	}
	assert.InDelta(t, 30.0, total, 1e-9)
	assert.InDelta(t, 1.0, result.Coverage, 1e-9)
	assert.False(t, result.Fallback)

	require.Len(t, result.Clips, 3)
	for i, clip := range result.Clips {
		assert.Equal(t, i, clip.Segment.SceneIdx)
	}
	assert.Equal(t, types.AssemblyPcmConcat, result.Strategy)
	assert.False(t, result.Degraded)

	data, err := os.ReadFile(result.Outputs.Script)
	require.NoError(t, err)
	var doc types.NarrativeScript
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Segments, 3)

	duration, err := util.WavDuration(result.Outputs.Audio)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, duration, 1e-6)

	wsRoot, err := resolveWorkspaceRoot()
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(wsRoot, "run_test"))
	assert.Equal(t, []appcore.RunStage{
		appcore.RunStagePreparing,
		appcore.RunStageDetecting,
		appcore.RunStageDescribing,
		appcore.RunStagePlanning,
		appcore.RunStageSynthesizing,
		appcore.RunStageRendering,
	}, stages)
	f.muxer.AssertNotCalled(t, "Mux", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunTreatsDetectorFailureAsOneScene(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.On("DetectScenes", mock.Anything, f.source).Return(nil, errors.New("ffmpeg crashed"))
	f.describer.On("DescribeImage", mock.Anything, mock.Anything, mock.Anything).Return("a long shot", nil)
	f.chat.On("JSONCompletion", mock.Anything, mock.Anything, mock.Anything).Return(`{"segments": []}`, nil)
	f.ttser.On("Text2Speech", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Run(context.Background(), appcore.RunRequest{RunID: "run_one", Source: f.source, OutputFormat: types.OutputFormatSRT}, nil)
	require.NoError(t, err)
	require.Len(t, result.Scenes, 1)
	assert.Equal(t, 30.0, result.Scenes[0].EndTime)
	require.Len(t, result.Segments, 1)
	assert.True(t, result.Fallback)
	assert.Equal(t, "In this scene, a long shot", result.Segments[0].Text)
}

func TestRunRejectsMissingSource(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.svc.Run(context.Background(), appcore.RunRequest{RunID: "run_missing", Source: "/no/such/video.mp4"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeVideoNotFound, apperrors.GetCode(err))
}

func TestRunMuxesWhenRequested(t *testing.T) {
	f := newPipelineFixture(t)
	f.expectThreeScenes()
	f.ttser.On("Text2Speech", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.muxer.On("Mux", mock.Anything, f.source, mock.Anything, mock.Anything).Return(errors.New("no video stream"))

	result, err := f.svc.Run(context.Background(), appcore.RunRequest{RunID: "run_mux", Source: f.source, OutputFormat: types.OutputFormatVTT, Mux: true}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Outputs.MuxError)
	assert.FileExists(t, result.Outputs.Script)
	assert.FileExists(t, result.Outputs.Audio)
}

func useServiceTestDB(t *testing.T) {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "narrator.db"))
	require.NoError(t, err)
	original := storage.DB
	storage.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		storage.DB = original
	})
}

func TestExecuteRunRecordsSuccess(t *testing.T) {
	useServiceTestDB(t)
	f := newPipelineFixture(t)
	f.expectThreeScenes()
	f.ttser.On("Text2Speech", mock.Anything, "Fishermen load their nets.", mock.Anything, mock.Anything).Return(errors.New("timeout"))
	f.ttser.On("Text2Speech", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req, err := QueueRun(appcore.RunRequest{Source: f.source, OutputFormat: types.OutputFormatYAML})
	require.NoError(t, err)
	require.NotEmpty(t, req.RunID)

	_, err = f.svc.ExecuteRun(context.Background(), req, nil)
	require.NoError(t, err)

	run, err := storage.GetRun(req.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, run.Status)
	assert.Equal(t, appcore.RunStageSucceeded.String(), run.Stage)
	assert.Equal(t, 3, run.SceneCount)
	assert.Equal(t, 3, run.SegmentCount)
	assert.Equal(t, 2, run.ClipCount)
	assert.True(t, run.Degraded)
	assert.FileExists(t, run.ScriptPath)
}

func TestExecuteRunRecordsFailureAndRetry(t *testing.T) {
	useServiceTestDB(t)
	f := newPipelineFixture(t)
	f.expectThreeScenes()
	f.ttser.On("Text2Speech", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unauthorized"))

	req, err := QueueRun(appcore.RunRequest{Source: f.source})
	require.NoError(t, err)

	_, err = f.svc.ExecuteRun(context.Background(), req, nil)
	require.Error(t, err)

	run, err := storage.GetRun(req.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.Equal(t, appcore.RunStageFailed.String(), run.Stage)
	assert.Contains(t, run.FailReason, "no audio clips")

	retry, err := RetryRequest(req.RunID)
	require.NoError(t, err)
	assert.Equal(t, req.RunID, retry.RunID)
	assert.Equal(t, f.source, retry.Source)
	assert.Equal(t, types.OutputFormatJSON, retry.OutputFormat)

	require.NoError(t, DeleteRun(req.RunID))
	_, err = RetryRequest(req.RunID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUploadStillNeededOnlyForUnfinishedRuns(t *testing.T) {
	assert.False(t, UploadStillNeeded("run_nodb"))

	useServiceTestDB(t)
	failed, err := QueueRun(appcore.RunRequest{Source: "/uploads/run_a/clip.mp4"})
	require.NoError(t, err)
	run, err := storage.GetRun(failed.RunID)
	require.NoError(t, err)
	run.Status = types.RunStatusFailed
	require.NoError(t, storage.SaveRun(run))

	done, err := QueueRun(appcore.RunRequest{Source: "/uploads/run_b/clip.mp4"})
	require.NoError(t, err)
	run, err = storage.GetRun(done.RunID)
	require.NoError(t, err)
	run.Status = types.RunStatusSucceeded
	require.NoError(t, storage.SaveRun(run))

	assert.True(t, UploadStillNeeded(failed.RunID))
	assert.False(t, UploadStillNeeded(done.RunID))
	assert.False(t, UploadStillNeeded("run_unknown"))
}
