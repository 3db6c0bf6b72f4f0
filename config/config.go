package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-narrator/internal/appdirs"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type App struct {
	OutputDir               string `toml:"output_dir"`
	Proxy                   string `toml:"proxy"`
	KeepWorkspace           bool   `toml:"keep_workspace"`
	WorkspaceRetentionHours int    `toml:"workspace_retention_hours"`
	MaxRunQueue             int    `toml:"max_run_queue"`
	RunWorkers              int    `toml:"run_workers"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Scene struct {
	Threshold         float64 `toml:"threshold"`
	MinSceneLenFrames int     `toml:"min_scene_len_frames"`
}

type Llm struct {
	BaseUrl        string `toml:"base_url"`
	ApiKey         string `toml:"api_key"`
	VisionModel    string `toml:"vision_model"`
	NarrativeModel string `toml:"narrative_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ElevenLabs struct {
	ApiKey  string `toml:"api_key"`
	BaseUrl string `toml:"base_url"`
	ModelId string `toml:"model_id"`
}

type OpenaiTts struct {
	ApiKey  string `toml:"api_key"`
	BaseUrl string `toml:"base_url"`
	Model   string `toml:"model"`
	Voice   string `toml:"voice"`
}

type Minimax struct {
	ApiKey  string `toml:"api_key"`
	GroupId string `toml:"group_id"`
	BaseUrl string `toml:"base_url"`
	Model   string `toml:"model"`
	Voice   string `toml:"voice"`
}

type Tts struct {
	Provider        string     `toml:"provider"`
	VoiceId         string     `toml:"voice_id"`
	VoiceName       string     `toml:"voice_name"`
	Stability       float64    `toml:"stability"`
	SimilarityBoost float64    `toml:"similarity_boost"`
	Concurrency     int        `toml:"concurrency"`
	TimeoutSeconds  int        `toml:"timeout_seconds"`
	ElevenLabs      ElevenLabs `toml:"elevenlabs"`
	Openai          OpenaiTts  `toml:"openai"`
	Minimax         Minimax    `toml:"minimax"`
}

type Narrative struct {
	CoverageTolerance float64 `toml:"coverage_tolerance"`
}

type Queue struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

type Config struct {
	App       App       `toml:"app"`
	Server    Server    `toml:"server"`
	Scene     Scene     `toml:"scene"`
	Llm       Llm       `toml:"llm"`
	Tts       Tts       `toml:"tts"`
	Narrative Narrative `toml:"narrative"`
	Queue     Queue     `toml:"queue"`
}

const (
	TtsProviderElevenLabs = "elevenlabs"
	TtsProviderOpenai     = "openai"
	TtsProviderMinimax    = "minimax"

	DefaultVoiceId = "21m00Tcm4TlvDq8ikWAM"
)

var Conf = defaultConfig()

var resolveConfigPath = ResolveConfigPath

func defaultConfig() Config {
	return Config{
		App: App{
			WorkspaceRetentionHours: 24,
			MaxRunQueue:             16,
			RunWorkers:              1,
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Scene: Scene{
			Threshold:         0.3,
			MinSceneLenFrames: 15,
		},
		Llm: Llm{
			BaseUrl:        "https://api.openai.com/v1",
			VisionModel:    "gpt-4o",
			NarrativeModel: "gpt-4-turbo",
			TimeoutSeconds: 120,
		},
		Tts: Tts{
			Provider:        TtsProviderElevenLabs,
			VoiceId:         DefaultVoiceId,
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Concurrency:     3,
			TimeoutSeconds:  60,
			ElevenLabs: ElevenLabs{
				BaseUrl: "https://api.elevenlabs.io",
				ModelId: "eleven_monolingual_v1",
			},
			Openai: OpenaiTts{
				Model: "tts-1",
				Voice: "alloy",
			},
			Minimax: Minimax{
				BaseUrl: "https://api.minimax.chat",
				Model:   "speech-01-turbo",
				Voice:   "male-qn-qingse",
			},
		},
		Narrative: Narrative{
			CoverageTolerance: 0.95,
		},
		Queue: Queue{
			RedisAddr:   "127.0.0.1:6379",
			Concurrency: 2,
		},
	}
}

// ResolveConfigPath returns the config file location for this installation.
func ResolveConfigPath() (string, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.GetLogger().Warn("failed to load env file", zap.String("file", f), zap.Error(err))
		}
	}
}

// LoadOrCreateConfig loads the config file, writing defaults first when it
// does not exist yet. Environment overrides are applied on top either way.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		applyEnvOverrides(&Conf, os.Getenv)
		log.GetLogger().Info("config file not found, wrote defaults", zap.String("path", configPath))
		return true, nil
	} else if err != nil {
		return false, err
	}

	loaded := defaultConfig()
	if _, err = toml.DecodeFile(configPath, &loaded); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	applyEnvOverrides(&loaded, os.Getenv)
	Conf = loaded
	log.GetLogger().Info("loaded config", zap.String("path", configPath))
	return false, nil
}

// SaveConfig writes Conf to the config path, creating parent directories.
func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(Conf)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

// applyEnvOverrides maps the well-known credential variables onto the config.
func applyEnvOverrides(c *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("OPENAI_API_KEY")); v != "" {
		c.Llm.ApiKey = v
		if c.Tts.Openai.ApiKey == "" {
			c.Tts.Openai.ApiKey = v
		}
	}
	if v := strings.TrimSpace(getenv("OPENAI_BASE_URL")); v != "" {
		c.Llm.BaseUrl = v
	}
	if v := strings.TrimSpace(getenv("ELEVEN_API_KEY")); v != "" {
		c.Tts.ElevenLabs.ApiKey = v
	}
	if v := strings.TrimSpace(getenv("ELEVEN_VOICE_ID")); v != "" {
		c.Tts.VoiceId = v
	}
	if v := strings.TrimSpace(getenv("ELEVEN_STABILITY")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tts.Stability = f
		} else {
			log.GetLogger().Warn("ignoring ELEVEN_STABILITY", zap.String("value", v), zap.Error(err))
		}
	}
	if v := strings.TrimSpace(getenv("ELEVEN_SIMILARITY_BOOST")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tts.SimilarityBoost = f
		} else {
			log.GetLogger().Warn("ignoring ELEVEN_SIMILARITY_BOOST", zap.String("value", v), zap.Error(err))
		}
	}
	if v := strings.TrimSpace(getenv("MINIMAX_API_KEY")); v != "" {
		c.Tts.Minimax.ApiKey = v
	}
	if v := strings.TrimSpace(getenv("MINIMAX_GROUP_ID")); v != "" {
		c.Tts.Minimax.GroupId = v
	}
	if v := strings.TrimSpace(getenv("REDIS_ADDR")); v != "" {
		c.Queue.RedisAddr = v
	}
}

// CheckConfig fails fast on anything that would only surface mid-run.
func CheckConfig() error {
	return Conf.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Llm.ApiKey) == "" {
		return apperrors.WrapWithDetail(apperrors.CodeMissingCredential, "llm api key is not configured",
			"set llm.api_key or OPENAI_API_KEY", nil)
	}

	switch c.Tts.Provider {
	case TtsProviderElevenLabs:
		if strings.TrimSpace(c.Tts.ElevenLabs.ApiKey) == "" {
			return apperrors.WrapWithDetail(apperrors.CodeMissingCredential, "elevenlabs api key is not configured",
				"set tts.elevenlabs.api_key or ELEVEN_API_KEY", nil)
		}
		if strings.TrimSpace(c.Tts.VoiceId) == "" && strings.TrimSpace(c.Tts.VoiceName) == "" {
			return apperrors.New(apperrors.CodeInvalidParams, "tts.voice_id or tts.voice_name is required")
		}
	case TtsProviderOpenai:
		if strings.TrimSpace(c.Tts.Openai.ApiKey) == "" {
			return apperrors.WrapWithDetail(apperrors.CodeMissingCredential, "openai tts api key is not configured",
				"set tts.openai.api_key or OPENAI_API_KEY", nil)
		}
	case TtsProviderMinimax:
		if strings.TrimSpace(c.Tts.Minimax.ApiKey) == "" || strings.TrimSpace(c.Tts.Minimax.GroupId) == "" {
			return apperrors.WrapWithDetail(apperrors.CodeMissingCredential, "minimax credentials are not configured",
				"set tts.minimax.api_key and tts.minimax.group_id or MINIMAX_API_KEY and MINIMAX_GROUP_ID", nil)
		}
	default:
		return apperrors.New(apperrors.CodeInvalidParams, fmt.Sprintf("unsupported tts provider %q", c.Tts.Provider))
	}

	if c.Tts.Stability < 0 || c.Tts.Stability > 1 {
		return apperrors.New(apperrors.CodeInvalidParams, "tts.stability must be within [0, 1]")
	}
	if c.Tts.SimilarityBoost < 0 || c.Tts.SimilarityBoost > 1 {
		return apperrors.New(apperrors.CodeInvalidParams, "tts.similarity_boost must be within [0, 1]")
	}
	if c.Tts.Concurrency < 1 {
		return apperrors.New(apperrors.CodeInvalidParams, "tts.concurrency must be at least 1")
	}
	if c.Narrative.CoverageTolerance <= 0 || c.Narrative.CoverageTolerance > 1 {
		return apperrors.New(apperrors.CodeInvalidParams, "narrative.coverage_tolerance must be within (0, 1]")
	}
	if c.Queue.Enabled && strings.TrimSpace(c.Queue.RedisAddr) == "" {
		return apperrors.New(apperrors.CodeInvalidParams, "queue.redis_addr is required when the queue is enabled")
	}
	return nil
}
