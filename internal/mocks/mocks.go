// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"video-narrator/internal/types"

	"github.com/stretchr/testify/mock"
)

// MockChatCompleter is a mock implementation of types.ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func (m *MockChatCompleter) JSONCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// MockFrameDescriber is a mock implementation of types.FrameDescriber
type MockFrameDescriber struct {
	mock.Mock
}

func (m *MockFrameDescriber) DescribeImage(ctx context.Context, imagePath, prompt string) (string, error) {
	args := m.Called(ctx, imagePath, prompt)
	return args.String(0), args.Error(1)
}

// MockTtser is a mock implementation of types.Ttser. Set Render to write a
// file when the call succeeds.
type MockTtser struct {
	mock.Mock
	Render func(text, outputFile string) error
}

func (m *MockTtser) Text2Speech(ctx context.Context, text string, voice types.VoiceParams, outputFile string) error {
	args := m.Called(ctx, text, voice, outputFile)
	if err := args.Error(0); err != nil {
		return err
	}
	if m.Render != nil {
		return m.Render(text, outputFile)
	}
	return nil
}

// MockSceneDetector is a mock implementation of types.SceneDetector
type MockSceneDetector struct {
	mock.Mock
}

func (m *MockSceneDetector) DetectScenes(ctx context.Context, videoPath string) (*types.SceneDetection, error) {
	args := m.Called(ctx, videoPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SceneDetection), args.Error(1)
}

// MockKeyframeExtractor is a mock implementation of types.KeyframeExtractor
type MockKeyframeExtractor struct {
	mock.Mock
}

func (m *MockKeyframeExtractor) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outputFile string) error {
	args := m.Called(ctx, videoPath, atSeconds, outputFile)
	return args.Error(0)
}

// MockMuxer is a mock implementation of types.Muxer
type MockMuxer struct {
	mock.Mock
}

func (m *MockMuxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := m.Called(ctx, videoPath, audioPath, outputPath)
	return args.Error(0)
}
