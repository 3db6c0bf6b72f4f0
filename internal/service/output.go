package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"video-narrator/internal/script"
	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	scriptBaseName    = "narration_script"
	combinedAudioName = "narration.wav"
	narratedVideoName = "narrated_video.mp4"
	runDirAttempts    = 5
)

// FfmpegMuxer replaces a video's audio track with ffmpeg.
type FfmpegMuxer struct{}

func (FfmpegMuxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return util.MuxVideoAudio(ctx, videoPath, audioPath, outputPath)
}

// Outputs lists what a run left in its output directory.
type Outputs struct {
	Dir      string `json:"output_dir"`
	Script   string `json:"script"`
	Audio    string `json:"audio"`
	Video    string `json:"video,omitempty"`
	MuxError string `json:"mux_error,omitempty"`
}

// OutputAssembler writes the final artifacts of a run.
type OutputAssembler struct {
	Muxer types.Muxer
}

func ScriptFileName(format string) string {
	return scriptBaseName + "." + format
}

// WriteArtifacts stores the script and the combined audio in dir under
// fixed names.
func (o *OutputAssembler) WriteArtifacts(dir, format string, segments []types.NarrativeSegment, combinedAudio string) (*Outputs, error) {
	if !script.IsSupported(format) {
		return nil, apperrors.New(apperrors.CodeUnsupportedForm, fmt.Sprintf("unsupported output format %q", format))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "create output directory failed", err)
	}

	out := &Outputs{
		Dir:    dir,
		Script: filepath.Join(dir, ScriptFileName(format)),
		Audio:  filepath.Join(dir, combinedAudioName),
	}
	if err := script.WriteFile(out.Script, format, segments); err != nil {
		return nil, err
	}
	if err := util.CopyFile(combinedAudio, out.Audio); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "copy combined audio failed", err)
	}
	return out, nil
}

// MuxVideo puts the combined audio under the original video stream. A
// failure is recorded on out and logged; the script and audio stay valid.
func (o *OutputAssembler) MuxVideo(ctx context.Context, out *Outputs, videoPath string) {
	muxer := o.Muxer
	if muxer == nil {
		muxer = FfmpegMuxer{}
	}
	target := filepath.Join(out.Dir, narratedVideoName)
	if err := muxer.Mux(ctx, videoPath, out.Audio, target); err != nil {
		_ = os.Remove(target)
		log.GetLogger().Warn("muxing narrated video failed, keeping script and audio",
			zap.String("video", videoPath), zap.Error(err))
		out.MuxError = apperrors.Wrap(apperrors.CodeMuxFailed, "mux narrated video failed", err).Error()
		return
	}
	out.Video = target
}

// CreateRunDir makes a fresh directory under root named after the source,
// the time and a short random suffix. It never reuses an existing directory.
func CreateRunDir(root, source string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "create output root failed", err)
	}
	stem := util.SanitizeFileName(sourceStem(source))
	var lastErr error
	for i := 0; i < runDirAttempts; i++ {
		name := fmt.Sprintf("%s_%s_%s", stem, now.Format("20060102-150405"), uuid.NewString()[:4])
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", apperrors.Wrap(apperrors.CodeFileWriteError, "create run directory failed", err)
		}
		lastErr = err
	}
	return "", apperrors.Wrap(apperrors.CodeFileWriteError, "no free run directory name", lastErr)
}

func sourceStem(source string) string {
	name := filepath.Base(source)
	if util.IsRemoteURL(source) {
		name = util.RemoteFileName(source)
	}
	return name[:len(name)-len(filepath.Ext(name))]
}
