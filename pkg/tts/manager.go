package tts

import (
	"context"
	"strings"
	"time"

	"video-narrator/config"
	"video-narrator/internal/types"
	"video-narrator/log"
	"video-narrator/pkg/elevenlabs"
	"video-narrator/pkg/minimax"
	"video-narrator/pkg/openai"

	"go.uber.org/zap"
)

var openaiVoices = map[string]bool{
	"alloy": true, "ash": true, "coral": true, "echo": true, "fable": true,
	"onyx": true, "nova": true, "sage": true, "shimmer": true,
}

// CompositeTtsClient routes each request to the provider that owns the voice.
type CompositeTtsClient struct {
	ElevenLabs *elevenlabs.Client
	OpenAI     *openai.Client
	MiniMax    *minimax.Client
	Default    types.Ttser
	provider   string
}

func NewCompositeTtsClient(conf config.Config) *CompositeTtsClient {
	c := &CompositeTtsClient{provider: conf.Tts.Provider}

	if conf.Tts.ElevenLabs.ApiKey != "" {
		c.ElevenLabs = elevenlabs.NewClient(
			conf.Tts.ElevenLabs.ApiKey,
			conf.Tts.ElevenLabs.BaseUrl,
			conf.Tts.ElevenLabs.ModelId,
			conf.App.Proxy,
			time.Duration(conf.Tts.TimeoutSeconds)*time.Second,
		)
	}
	if conf.Tts.Openai.ApiKey != "" {
		c.OpenAI = openai.NewClient(openai.Options{
			BaseUrl:  conf.Tts.Openai.BaseUrl,
			ApiKey:   conf.Tts.Openai.ApiKey,
			Proxy:    conf.App.Proxy,
			Timeout:  time.Duration(conf.Tts.TimeoutSeconds) * time.Second,
			TtsModel: conf.Tts.Openai.Model,
			TtsVoice: conf.Tts.Openai.Voice,
		})
	}

	if conf.Tts.Minimax.ApiKey != "" {
		c.MiniMax = minimax.NewClient(
			conf.Tts.Minimax.ApiKey,
			conf.Tts.Minimax.GroupId,
			conf.Tts.Minimax.Model,
			conf.Tts.Minimax.BaseUrl,
			conf.App.Proxy,
			time.Duration(conf.Tts.TimeoutSeconds)*time.Second,
		)
	}

	switch conf.Tts.Provider {
	case config.TtsProviderOpenai:
		if c.OpenAI != nil {
			c.Default = c.OpenAI
		}
	case config.TtsProviderMinimax:
		if c.MiniMax != nil {
			c.Default = c.MiniMax
		}
	default:
		if c.ElevenLabs != nil {
			c.Default = c.ElevenLabs
		}
	}
	if c.Default == nil {
		switch {
		case c.ElevenLabs != nil:
			c.Default = c.ElevenLabs
		case c.OpenAI != nil:
			c.Default = c.OpenAI
		case c.MiniMax != nil:
			c.Default = c.MiniMax
		}
	}
	return c
}

func (c *CompositeTtsClient) Text2Speech(ctx context.Context, text string, voice types.VoiceParams, outputFile string) error {
	if openaiVoices[strings.ToLower(voice.VoiceId)] && c.OpenAI != nil {
		log.GetLogger().Debug("Routing to OpenAI TTS", zap.String("voice", voice.VoiceId))
		return c.OpenAI.Text2Speech(ctx, text, voice, outputFile)
	}
	if c.Default == nil {
		return errNoProvider
	}
	return c.Default.Text2Speech(ctx, text, voice, outputFile)
}

// ResolveVoice builds the voice used for every clip of a run. A configured
// voice name is looked up through ElevenLabs when no voice id is set.
func (c *CompositeTtsClient) ResolveVoice(ctx context.Context, conf config.Config) (types.VoiceParams, error) {
	voice := types.VoiceParams{
		VoiceId:         conf.Tts.VoiceId,
		Stability:       conf.Tts.Stability,
		SimilarityBoost: conf.Tts.SimilarityBoost,
	}

	switch conf.Tts.Provider {
	case config.TtsProviderOpenai:
		voice.VoiceId = conf.Tts.Openai.Voice
		voice.ModelId = conf.Tts.Openai.Model
		return voice, nil
	case config.TtsProviderMinimax:
		voice.VoiceId = conf.Tts.Minimax.Voice
		voice.ModelId = conf.Tts.Minimax.Model
		return voice, nil
	}

	voice.ModelId = conf.Tts.ElevenLabs.ModelId
	if voice.VoiceId == "" && conf.Tts.VoiceName != "" && c.ElevenLabs != nil {
		id, err := c.ElevenLabs.ResolveVoiceId(ctx, conf.Tts.VoiceName)
		if err != nil {
			return voice, err
		}
		log.GetLogger().Info("resolved voice name",
			zap.String("name", conf.Tts.VoiceName), zap.String("voiceId", id))
		voice.VoiceId = id
	}
	return voice, nil
}
