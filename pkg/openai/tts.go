package openai

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"video-narrator/internal/types"

	"github.com/sashabaranov/go-openai"
)

// Text2Speech renders text as a WAV file. Stability settings have no
// equivalent here and are ignored.
func (c *Client) Text2Speech(ctx context.Context, text string, voice types.VoiceParams, outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}

	voiceName := voice.VoiceId
	if voiceName == "" {
		voiceName = c.TtsVoice
	}
	model := voice.ModelId
	if model == "" {
		model = c.TtsModel
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceName),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return err
	}
	defer resp.Close()

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, resp); err != nil {
		out.Close()
		_ = os.Remove(outputFile)
		return err
	}
	return out.Close()
}
