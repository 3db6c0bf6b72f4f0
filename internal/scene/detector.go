package scene

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	"video-narrator/log"
	"video-narrator/pkg/util"

	"go.uber.org/zap"
)

// FfmpegDetector finds cuts with ffmpeg's scene score filter.
type FfmpegDetector struct {
	Threshold         float64
	MinSceneLenFrames int

	probe func(ctx context.Context, videoPath string) (*types.VideoMetadata, error)
}

func NewFfmpegDetector(threshold float64, minSceneLenFrames int) *FfmpegDetector {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.3
	}
	if minSceneLenFrames < 1 {
		minSceneLenFrames = 1
	}
	return &FfmpegDetector{
		Threshold:         threshold,
		MinSceneLenFrames: minSceneLenFrames,
		probe:             util.ProbeVideo,
	}
}

func (d *FfmpegDetector) DetectScenes(ctx context.Context, videoPath string) (*types.SceneDetection, error) {
	meta, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if meta.FPS <= 0 {
		return nil, fmt.Errorf("cannot detect scenes in %s: unknown frame rate", videoPath)
	}

	log.GetLogger().Info("detecting scene changes",
		zap.String("input", videoPath),
		zap.Float64("threshold", d.Threshold))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, storage.FfmpegPath,
		"-hide_banner",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", d.Threshold),
		"-f", "null",
		"-")
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	cuts := parseSceneCuts(stderr.String())
	ranges := cutsToRanges(cuts, meta.FPS, meta.FrameCount, d.MinSceneLenFrames)
	log.GetLogger().Info("scene detection complete",
		zap.Int("cuts", len(cuts)),
		zap.Int("scenes", len(ranges)))

	return &types.SceneDetection{
		FPS:         meta.FPS,
		TotalFrames: meta.FrameCount,
		Ranges:      ranges,
	}, nil
}

// parseSceneCuts reads the pts_time of every frame showinfo printed.
func parseSceneCuts(output string) []float64 {
	var cuts []float64
	for _, line := range strings.Split(output, "\n") {
		_, rest, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
			cuts = append(cuts, seconds)
		}
	}
	sort.Float64s(cuts)
	return cuts
}

// cutsToRanges splits [0, totalFrames) at each cut, skipping cuts that would
// leave a scene shorter than minLen frames. No cuts yields no ranges so the
// caller falls back to a single scene.
func cutsToRanges(cuts []float64, fps float64, totalFrames, minLen int) []types.FrameRange {
	if len(cuts) == 0 || totalFrames <= 0 {
		return nil
	}
	var ranges []types.FrameRange
	start := 0
	for _, c := range cuts {
		frame := int(math.Round(c * fps))
		if frame-start < minLen || totalFrames-frame < minLen {
			continue
		}
		ranges = append(ranges, types.FrameRange{Start: start, End: frame})
		start = frame
	}
	if len(ranges) == 0 {
		return nil
	}
	return append(ranges, types.FrameRange{Start: start, End: totalFrames})
}
