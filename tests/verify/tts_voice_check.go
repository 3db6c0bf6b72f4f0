//go:build verify
// +build verify

// Synthesizes a short line with the configured voice and reports the clip
// duration, to check TTS credentials outside a full run.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"video-narrator/config"
	"video-narrator/pkg/tts"
	"video-narrator/pkg/util"
)

func main() {
	config.LoadDotEnv()
	if _, err := config.LoadOrCreateConfig(); err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := tts.NewCompositeTtsClient(config.Conf)
	voice, err := client.ResolveVoice(ctx, config.Conf)
	if err != nil {
		fmt.Printf("resolve voice: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("provider=%s voice=%s\n", config.Conf.Tts.Provider, voice.VoiceId)

	out := filepath.Join(os.TempDir(), "narrator_voice_check.wav")
	defer os.Remove(out)

	if err = client.Text2Speech(ctx, "This is a short voice check.", voice, out); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
	seconds, err := util.WavDuration(out)
	if err != nil {
		fmt.Printf("FAILED: clip unreadable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("SUCCESS: %.2fs clip\n", seconds)
}
