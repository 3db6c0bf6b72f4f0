package elevenlabs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"video-narrator/internal/types"
	"video-narrator/log"
	"video-narrator/pkg/util"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultModelId = "eleven_monolingual_v1"

	pcmSampleRate = 44100
	pcmFormat     = "pcm_44100"
)

// Client implements types.Ttser against the ElevenLabs REST API.
type Client struct {
	ApiKey  string
	BaseURL string
	ModelId string

	http *resty.Client
}

func NewClient(apiKey, baseURL, modelId, proxy string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelId == "" {
		modelId = DefaultModelId
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("xi-api-key", apiKey).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	if proxy != "" {
		httpClient.SetProxy(proxy)
	}
	return &Client{
		ApiKey:  apiKey,
		BaseURL: baseURL,
		ModelId: modelId,
		http:    httpClient,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelId       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type apiError struct {
	Detail any `json:"detail"`
}

// Text2Speech requests raw 44.1kHz PCM and stores it as a mono WAV file, so
// every clip of a run shares one format.
func (c *Client) Text2Speech(ctx context.Context, text string, voice types.VoiceParams, outputFile string) error {
	if voice.VoiceId == "" {
		return fmt.Errorf("elevenlabs: voice id is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	model := voice.ModelId
	if model == "" {
		model = c.ModelId
	}

	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/*").
		SetPathParam("voiceId", voice.VoiceId).
		SetQueryParam("output_format", pcmFormat).
		SetBody(speechRequest{
			Text:    text,
			ModelId: model,
			VoiceSettings: voiceSettings{
				Stability:       voice.Stability,
				SimilarityBoost: voice.SimilarityBoost,
			},
		}).
		SetError(&apiErr).
		Post("/v1/text-to-speech/{voiceId}")
	if err != nil {
		return fmt.Errorf("elevenlabs request failed: %w", err)
	}
	if resp.IsError() {
		log.GetLogger().Error("elevenlabs tts rejected request",
			zap.Int("status", resp.StatusCode()),
			zap.Any("detail", apiErr.Detail))
		return fmt.Errorf("elevenlabs api error: %s: %v", resp.Status(), apiErr.Detail)
	}

	pcm := resp.Body()
	if len(pcm) == 0 {
		return fmt.Errorf("elevenlabs returned no audio")
	}
	return util.WritePCM16Wav(pcm, pcmSampleRate, 1, outputFile)
}
