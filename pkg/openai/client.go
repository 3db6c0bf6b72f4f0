package openai

import (
	"net/http"
	"net/url"
	"time"

	"video-narrator/log"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client implements types.ChatCompleter, types.FrameDescriber and
// types.Ttser on top of an OpenAI compatible endpoint.
type Client struct {
	client *openai.Client

	VisionModel string
	ChatModel   string
	TtsModel    string
	TtsVoice    string
}

type Options struct {
	BaseUrl     string
	ApiKey      string
	Proxy       string
	Timeout     time.Duration
	VisionModel string
	ChatModel   string
	TtsModel    string
	TtsVoice    string
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.ApiKey)
	if opts.BaseUrl != "" {
		cfg.BaseURL = opts.BaseUrl
	}

	transport := &http.Transport{}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			log.GetLogger().Warn("ignoring invalid proxy", zap.String("proxy", opts.Proxy), zap.Error(err))
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	cfg.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	c := &Client{
		client:      openai.NewClientWithConfig(cfg),
		VisionModel: opts.VisionModel,
		ChatModel:   opts.ChatModel,
		TtsModel:    opts.TtsModel,
		TtsVoice:    opts.TtsVoice,
	}
	if c.VisionModel == "" {
		c.VisionModel = openai.GPT4o
	}
	if c.ChatModel == "" {
		c.ChatModel = openai.GPT4Turbo
	}
	if c.TtsModel == "" {
		c.TtsModel = string(openai.TTSModel1)
	}
	if c.TtsVoice == "" {
		c.TtsVoice = string(openai.VoiceAlloy)
	}
	return c
}
