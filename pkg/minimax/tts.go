package minimax

import (
	"context"
	"encoding/hex"
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
	DefaultBaseURL = "https://api.minimax.chat"
	DefaultModel   = "speech-01-turbo"
	DefaultVoiceId = "male-qn-qingse"

	pcmSampleRate = 32000
)

// Client implements types.Ttser against the MiniMax t2a_v2 endpoint.
type Client struct {
	ApiKey  string
	GroupId string
	Model   string
	BaseURL string

	http *resty.Client
}

func NewClient(apiKey, groupId, model, baseURL, proxy string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	if proxy != "" {
		httpClient.SetProxy(proxy)
	}
	return &Client{
		ApiKey:  apiKey,
		GroupId: groupId,
		Model:   model,
		BaseURL: baseURL,
		http:    httpClient,
	}
}

type t2aRequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	VoiceSetting voiceSetting `json:"voice_setting"`
	AudioSetting audioSetting `json:"audio_setting"`
	Stream       bool         `json:"stream"`
}

type voiceSetting struct {
	VoiceId string `json:"voice_id"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type t2aResponse struct {
	BaseResp baseResp `json:"base_resp"`
	Data     struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
	TraceId string `json:"trace_id"`
}

// Text2Speech asks for hex-encoded mono PCM and writes it as a WAV file.
func (c *Client) Text2Speech(ctx context.Context, text string, voice types.VoiceParams, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}

	voiceId := voice.VoiceId
	if voiceId == "" {
		voiceId = DefaultVoiceId
	}
	model := voice.ModelId
	if model == "" {
		model = c.Model
	}

	var out t2aResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("GroupId", c.GroupId).
		SetBody(t2aRequest{
			Model:        model,
			Text:         text,
			VoiceSetting: voiceSetting{VoiceId: voiceId},
			AudioSetting: audioSetting{SampleRate: pcmSampleRate, Format: "pcm", Channel: 1},
		}).
		SetResult(&out).
		Post("/v1/t2a_v2")
	if err != nil {
		return fmt.Errorf("minimax request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("minimax api request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.BaseResp.StatusCode != 0 {
		return fmt.Errorf("minimax api error: %d - %s", out.BaseResp.StatusCode, out.BaseResp.StatusMsg)
	}
	if out.Data.Audio == "" {
		return fmt.Errorf("minimax returned empty audio")
	}

	pcm, err := hex.DecodeString(out.Data.Audio)
	if err != nil {
		return fmt.Errorf("decode hex audio failed: %w", err)
	}
	if err = util.WritePCM16Wav(pcm, pcmSampleRate, 1, outputFile); err != nil {
		return err
	}

	log.GetLogger().Debug("minimax tts done",
		zap.String("output", outputFile),
		zap.Int("bytes", len(pcm)),
		zap.String("trace_id", out.TraceId))
	return nil
}
