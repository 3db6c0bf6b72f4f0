package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "video-narrator/pkg/errors"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigPath(t *testing.T, configPath string) {
	t.Helper()
	old := resolveConfigPath
	resolveConfigPath = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { resolveConfigPath = old })

	oldConf := Conf
	t.Cleanup(func() { Conf = oldConf })
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "ELEVEN_API_KEY", "ELEVEN_VOICE_ID",
		"ELEVEN_STABILITY", "ELEVEN_SIMILARITY_BOOST", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
}

func TestLoadOrCreateConfigMissingCreatesDefault(t *testing.T) {
	clearCredentialEnv(t)
	configPath := filepath.Join(t.TempDir(), "config", "config.toml")
	useConfigPath(t, configPath)

	_, err := os.Stat(configPath)
	require.True(t, os.IsNotExist(err))

	created, err := LoadOrCreateConfig()
	require.NoError(t, err)
	assert.True(t, created)

	var got Config
	_, err = toml.DecodeFile(configPath, &got)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got.Server.Host)
	assert.Equal(t, 8888, got.Server.Port)
	assert.Equal(t, DefaultVoiceId, got.Tts.VoiceId)
	assert.Equal(t, 0.5, got.Tts.Stability)
	assert.Equal(t, 0.75, got.Tts.SimilarityBoost)
	assert.Equal(t, 0.95, got.Narrative.CoverageTolerance)
}

func TestLoadOrCreateConfigLoadsExistingAndKeepsDefaults(t *testing.T) {
	clearCredentialEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	useConfigPath(t, configPath)

	partial := "[server]\nhost = \"0.0.0.0\"\nport = 9999\n\n[tts]\nconcurrency = 5\n"
	require.NoError(t, os.WriteFile(configPath, []byte(partial), 0o600))

	created, err := LoadOrCreateConfig()
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, "0.0.0.0", Conf.Server.Host)
	assert.Equal(t, 9999, Conf.Server.Port)
	assert.Equal(t, 5, Conf.Tts.Concurrency)
	assert.Equal(t, TtsProviderElevenLabs, Conf.Tts.Provider)
	assert.Equal(t, 60, Conf.Tts.TimeoutSeconds)
}

func TestLoadOrCreateConfigAppliesEnvOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ELEVEN_API_KEY", "el-test")
	t.Setenv("ELEVEN_VOICE_ID", "voice-42")
	t.Setenv("ELEVEN_STABILITY", "0.3")
	t.Setenv("ELEVEN_SIMILARITY_BOOST", "not-a-number")

	useConfigPath(t, filepath.Join(t.TempDir(), "config.toml"))

	_, err := LoadOrCreateConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", Conf.Llm.ApiKey)
	assert.Equal(t, "sk-test", Conf.Tts.Openai.ApiKey)
	assert.Equal(t, "el-test", Conf.Tts.ElevenLabs.ApiKey)
	assert.Equal(t, "voice-42", Conf.Tts.VoiceId)
	assert.Equal(t, 0.3, Conf.Tts.Stability)
	assert.Equal(t, 0.75, Conf.Tts.SimilarityBoost)
}

func TestSaveConfigCreatesParentDirs(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deep", "nest", "config.toml")
	useConfigPath(t, configPath)

	Conf = defaultConfig()
	Conf.Server.Port = 9999
	require.NoError(t, SaveConfig())

	var got Config
	_, err := toml.DecodeFile(configPath, &got)
	require.NoError(t, err)
	assert.Equal(t, 9999, got.Server.Port)
}

func TestLoadDotEnvDoesNotOverrideSetVariables(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ELEVEN_VOICE_ID=from-file\nNARRATOR_TEST_ONLY=loaded\n"), 0o600))
	t.Setenv("ELEVEN_VOICE_ID", "from-shell")
	t.Setenv("NARRATOR_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("NARRATOR_TEST_ONLY"))

	LoadDotEnv(envFile, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "from-shell", os.Getenv("ELEVEN_VOICE_ID"))
	assert.Equal(t, "loaded", os.Getenv("NARRATOR_TEST_ONLY"))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := defaultConfig()
		c.Llm.ApiKey = "sk"
		c.Tts.ElevenLabs.ApiKey = "el"
		return c
	}

	testCases := []struct {
		name     string
		mutate   func(c *Config)
		wantCode int
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing llm key", mutate: func(c *Config) { c.Llm.ApiKey = " " }, wantCode: apperrors.CodeMissingCredential},
		{name: "missing elevenlabs key", mutate: func(c *Config) { c.Tts.ElevenLabs.ApiKey = "" }, wantCode: apperrors.CodeMissingCredential},
		{name: "openai tts without key", mutate: func(c *Config) {
			c.Tts.Provider = TtsProviderOpenai
			c.Tts.Openai.ApiKey = ""
		}, wantCode: apperrors.CodeMissingCredential},
		{name: "minimax without group", mutate: func(c *Config) {
			c.Tts.Provider = TtsProviderMinimax
			c.Tts.Minimax.ApiKey = "mm"
		}, wantCode: apperrors.CodeMissingCredential},
		{name: "minimax configured", mutate: func(c *Config) {
			c.Tts.Provider = TtsProviderMinimax
			c.Tts.Minimax.ApiKey = "mm"
			c.Tts.Minimax.GroupId = "g"
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.Tts.Provider = "espeak" }, wantCode: apperrors.CodeInvalidParams},
		{name: "stability out of range", mutate: func(c *Config) { c.Tts.Stability = 1.5 }, wantCode: apperrors.CodeInvalidParams},
		{name: "zero concurrency", mutate: func(c *Config) { c.Tts.Concurrency = 0 }, wantCode: apperrors.CodeInvalidParams},
		{name: "zero coverage tolerance", mutate: func(c *Config) { c.Narrative.CoverageTolerance = 0 }, wantCode: apperrors.CodeInvalidParams},
		{name: "queue without redis", mutate: func(c *Config) {
			c.Queue.Enabled = true
			c.Queue.RedisAddr = ""
		}, wantCode: apperrors.CodeInvalidParams},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantCode == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, apperrors.GetCode(err))
		})
	}
}
