package types

import "context"

type ChatCompleter interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// JSONCompletion asks the model for a single JSON object. The reply is
	// still untrusted text.
	JSONCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type FrameDescriber interface {
	DescribeImage(ctx context.Context, imagePath, prompt string) (string, error)
}

type Ttser interface {
	Text2Speech(ctx context.Context, text string, voice VoiceParams, outputFile string) error
}

type SceneDetector interface {
	DetectScenes(ctx context.Context, videoPath string) (*SceneDetection, error)
}

type KeyframeExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outputFile string) error
}

type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}
