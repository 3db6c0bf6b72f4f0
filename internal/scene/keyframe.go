package scene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"video-narrator/internal/types"
	"video-narrator/log"
	"video-narrator/pkg/util"

	"go.uber.org/zap"
)

// FfmpegFrameExtractor grabs single frames with ffmpeg.
type FfmpegFrameExtractor struct{}

func (FfmpegFrameExtractor) ExtractFrame(ctx context.Context, videoPath string, atSeconds float64, outputFile string) error {
	return util.ExtractFrame(ctx, videoPath, atSeconds, outputFile)
}

// AttachKeyframes writes the middle frame of every scene into dir and
// classifies its shot type. A scene whose frame cannot be extracted keeps an
// empty KeyframePath and the unknown shot type.
func AttachKeyframes(ctx context.Context, extractor types.KeyframeExtractor, videoPath string, scenes []types.Scene, dir string) ([]types.Scene, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]types.Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s
		out[i].SceneType = types.SceneTypeUnknown
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		mid := s.StartTime + s.Duration/2
		frameFile := filepath.Join(dir, fmt.Sprintf("scene_%d.jpg", i))
		if err := extractor.ExtractFrame(ctx, videoPath, mid, frameFile); err != nil {
			log.GetLogger().Warn("keyframe extraction failed",
				zap.Int("scene", i), zap.Float64("at", mid), zap.Error(err))
			continue
		}
		out[i].KeyframePath = frameFile
		out[i].SceneType = ClassifyShot(frameFile)
	}
	return out, nil
}
