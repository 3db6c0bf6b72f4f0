package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	"video-narrator/log"

	"go.uber.org/zap"
)

func runFfmpeg(ctx context.Context, op string, args ...string) error {
	cmd := exec.CommandContext(ctx, storage.FfmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.GetLogger().Error(op+" failed", zap.Error(err), zap.Strings("args", args), zap.String("output", tail(string(output), 2000)))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResampleWav rewrites any audio file as 16-bit PCM WAV with the given layout.
func ResampleWav(ctx context.Context, inputFile, outputFile string, sampleRate, channels int) error {
	return runFfmpeg(ctx, "ResampleWav",
		"-y", "-i", inputFile,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-c:a", "pcm_s16le",
		outputFile)
}

// ConcatWithDemuxer joins files with the concat demuxer without re-encoding.
// The list file is written next to outputFile.
func ConcatWithDemuxer(ctx context.Context, inputFiles []string, outputFile string) error {
	if len(inputFiles) == 0 {
		return fmt.Errorf("ConcatWithDemuxer: no input files")
	}
	listFile := strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + "_concat.txt"
	var sb strings.Builder
	for _, f := range inputFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		sb.WriteString(fmt.Sprintf("file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	if err := os.WriteFile(listFile, []byte(sb.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(listFile)

	return runFfmpeg(ctx, "ConcatWithDemuxer",
		"-y", "-f", "concat", "-safe", "0", "-i", listFile, "-c", "copy", outputFile)
}

// MuxVideoAudio replaces the audio of videoFile with audioFile. The video
// stream is copied and the output ends with the shorter stream.
func MuxVideoAudio(ctx context.Context, videoFile, audioFile, outputFile string) error {
	return runFfmpeg(ctx, "MuxVideoAudio",
		"-y",
		"-i", videoFile,
		"-i", audioFile,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outputFile)
}

// ExtractFrame writes the single frame at atSeconds as an image.
func ExtractFrame(ctx context.Context, videoFile string, atSeconds float64, outputFile string) error {
	return runFfmpeg(ctx, "ExtractFrame",
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoFile,
		"-frames:v", "1",
		"-q:v", "2",
		outputFile)
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// ProbeVideo reads container and stream metadata with ffprobe.
func ProbeVideo(ctx context.Context, videoFile string) (*types.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, storage.FfprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoFile)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", videoFile, err)
	}
	return parseProbeOutput(videoFile, out)
}

func parseProbeOutput(videoFile string, raw []byte) (*types.VideoMetadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	meta := &types.VideoMetadata{Path: videoFile}
	meta.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)

	foundVideo := false
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			meta.Width = s.Width
			meta.Height = s.Height
			meta.FPS = ParseFrameRate(s.AvgFrameRate)
			if meta.FPS <= 0 {
				meta.FPS = ParseFrameRate(s.RFrameRate)
			}
			meta.FrameCount, _ = strconv.Atoi(s.NbFrames)
			if meta.Duration <= 0 {
				meta.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			meta.HasAudio = true
		}
	}
	if !foundVideo {
		return nil, fmt.Errorf("no video stream in %s", videoFile)
	}
	if meta.FrameCount == 0 && meta.FPS > 0 {
		meta.FrameCount = int(meta.Duration*meta.FPS + 0.5)
	}
	return meta, nil
}

// ProbeDuration returns the duration in seconds of any media file.
func ProbeDuration(ctx context.Context, file string) (float64, error) {
	cmd := exec.CommandContext(ctx, storage.FfprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %s: %w", file, err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// ParseFrameRate parses ffprobe rates such as "30000/1001" or "25".
func ParseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0
	}
	return f
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
