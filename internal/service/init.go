package service

import (
	"context"
	"time"

	"video-narrator/config"
	"video-narrator/internal/scene"
	"video-narrator/internal/types"
	"video-narrator/log"
	"video-narrator/pkg/openai"
	"video-narrator/pkg/tts"
	"video-narrator/pkg/util"

	"go.uber.org/zap"
)

type voiceResolver interface {
	ResolveVoice(ctx context.Context, conf config.Config) (types.VoiceParams, error)
}

// Service owns the clients of one pipeline configuration. Every run started
// from it shares the same collaborators but nothing else.
type Service struct {
	Conf      config.Config
	Chat      types.ChatCompleter
	Describer types.FrameDescriber
	TtsClient types.Ttser
	Detector  types.SceneDetector
	Keyframes types.KeyframeExtractor
	Muxer     types.Muxer

	probe    func(ctx context.Context, videoPath string) (*types.VideoMetadata, error)
	download func(ctx context.Context, rawURL, outputFile, proxy string) error
	now      func() time.Time
	// assembler hooks, nil means the ffmpeg-backed defaults
	speechHooks func(a *SpeechAssembler)
}

func NewService(conf config.Config) *Service {
	llm := openai.NewClient(openai.Options{
		BaseUrl:     conf.Llm.BaseUrl,
		ApiKey:      conf.Llm.ApiKey,
		Proxy:       conf.App.Proxy,
		Timeout:     time.Duration(conf.Llm.TimeoutSeconds) * time.Second,
		VisionModel: conf.Llm.VisionModel,
		ChatModel:   conf.Llm.NarrativeModel,
	})
	log.GetLogger().Info("narration service configured",
		zap.String("visionModel", conf.Llm.VisionModel),
		zap.String("narrativeModel", conf.Llm.NarrativeModel),
		zap.String("ttsProvider", conf.Tts.Provider))

	return &Service{
		Conf:      conf,
		Chat:      llm,
		Describer: llm,
		TtsClient: tts.NewCompositeTtsClient(conf),
		Detector:  scene.NewFfmpegDetector(conf.Scene.Threshold, conf.Scene.MinSceneLenFrames),
		Keyframes: scene.FfmpegFrameExtractor{},
		Muxer:     FfmpegMuxer{},
		probe:     util.ProbeVideo,
		download:  util.DownloadFile,
		now:       time.Now,
	}
}

func (s *Service) planner() *NarrativePlanner {
	return NewNarrativePlanner(s.Describer, s.Chat, s.Conf.Narrative.CoverageTolerance)
}

func (s *Service) speechAssembler() *SpeechAssembler {
	a := NewSpeechAssembler(s.TtsClient, s.Conf.Tts.Concurrency, time.Duration(s.Conf.Tts.TimeoutSeconds)*time.Second)
	if s.speechHooks != nil {
		s.speechHooks(a)
	}
	return a
}

// voice is fixed for the whole run.
func (s *Service) voice(ctx context.Context) (types.VoiceParams, error) {
	if r, ok := s.TtsClient.(voiceResolver); ok {
		return r.ResolveVoice(ctx, s.Conf)
	}
	return types.VoiceParams{
		VoiceId:         s.Conf.Tts.VoiceId,
		Stability:       s.Conf.Tts.Stability,
		SimilarityBoost: s.Conf.Tts.SimilarityBoost,
	}, nil
}
