package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTtsConcurrency = 3
	defaultTtsTimeout     = 60 * time.Second
	normalizedSampleRate  = 44100
	normalizedChannels    = 1
)

// SpeechAssembler renders one clip per segment and joins the clips that
// survived into a single track.
type SpeechAssembler struct {
	Tts         types.Ttser
	Concurrency int
	Timeout     time.Duration

	// Swappable so the degradation ladder can be exercised without ffmpeg.
	concatWavs    func(inputs []string, output string) ([]float64, error)
	resample      func(ctx context.Context, input, output string, sampleRate, channels int) error
	concatDemuxer func(ctx context.Context, inputs []string, output string) error
	probeDuration func(ctx context.Context, file string) (float64, error)
}

// AssemblyResult describes the combined track. Clips are ordered by planned
// start time and Timeline places them back to back.
type AssemblyResult struct {
	CombinedPath string                 `json:"combined_path"`
	Clips        []types.AudioClip      `json:"clips"`
	Timeline     []types.TimelineEntry  `json:"timeline"`
	Strategy     types.AssemblyStrategy `json:"strategy"`
	Dropped      []int                  `json:"dropped,omitempty"`
}

func NewSpeechAssembler(tts types.Ttser, concurrency int, timeout time.Duration) *SpeechAssembler {
	return &SpeechAssembler{
		Tts:           tts,
		Concurrency:   concurrency,
		Timeout:       timeout,
		concatWavs:    util.ConcatWavs,
		resample:      util.ResampleWav,
		concatDemuxer: util.ConcatWithDemuxer,
		probeDuration: util.ProbeDuration,
	}
}

// Assemble writes clips under workDir/clips and the combined track to
// outputFile. It fails only when no clip at all could be rendered.
func (a *SpeechAssembler) Assemble(ctx context.Context, segments []types.NarrativeSegment, voice types.VoiceParams, workDir, outputFile string) (*AssemblyResult, error) {
	clips, dropped, err := a.SynthesizeClips(ctx, segments, voice, workDir)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, apperrors.New(apperrors.CodeNoAudioClips, "no audio clips were generated")
	}

	strategy, err := a.Combine(ctx, clips, workDir, outputFile)
	if err != nil {
		return nil, err
	}
	return &AssemblyResult{
		CombinedPath: outputFile,
		Clips:        clips,
		Timeline:     BuildTimeline(clips),
		Strategy:     strategy,
		Dropped:      dropped,
	}, nil
}

// SynthesizeClips renders every segment with the same voice. Failed segments
// are logged and reported by index. The returned clips are sorted by
// planned start time.
func (a *SpeechAssembler) SynthesizeClips(ctx context.Context, segments []types.NarrativeSegment, voice types.VoiceParams, workDir string) ([]types.AudioClip, []int, error) {
	if len(segments) == 0 {
		return nil, nil, nil
	}
	if a.Tts == nil {
		return nil, nil, apperrors.New(apperrors.CodeTTSFailed, "no speech provider configured")
	}
	clipDir := filepath.Join(workDir, "clips")
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeFileWriteError, "create clip directory failed", err)
	}

	concurrency := a.Concurrency
	if concurrency < 1 {
		concurrency = defaultTtsConcurrency
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultTtsTimeout
	}

	results := make([]*types.AudioClip, len(segments))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			clip, err := a.renderClip(ctx, i, seg, voice, clipDir, timeout)
			if err != nil {
				log.GetLogger().Warn("segment synthesis failed, dropping it",
					zap.Int("segment", i), zap.Float64("start", seg.StartTime), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = clip
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeCanceled, "speech synthesis canceled", err)
	}

	clips := make([]types.AudioClip, 0, len(segments))
	var dropped []int
	for i, clip := range results {
		if clip == nil {
			dropped = append(dropped, i)
			continue
		}
		clips = append(clips, *clip)
	}
	sort.SliceStable(clips, func(i, j int) bool { return clips[i].PlannedStart < clips[j].PlannedStart })
	return clips, dropped, nil
}

func (a *SpeechAssembler) renderClip(ctx context.Context, i int, seg types.NarrativeSegment, voice types.VoiceParams, clipDir string, timeout time.Duration) (*types.AudioClip, error) {
	if strings.TrimSpace(seg.Text) == "" {
		return nil, errors.New("segment text is empty")
	}
	clipFile := filepath.Join(clipDir, fmt.Sprintf("segment_%d.wav", i))

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.Tts.Text2Speech(callCtx, seg.Text, voice, clipFile); err != nil {
		_ = os.Remove(clipFile)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.CodeTTSTimeout, "speech request timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.CodeTTSFailed, "speech request failed", err)
	}

	duration, err := a.measure(ctx, clipFile)
	if err != nil {
		_ = os.Remove(clipFile)
		return nil, err
	}
	return &types.AudioClip{
		Segment:          seg,
		Path:             clipFile,
		PlannedStart:     seg.StartTime,
		PlannedDuration:  seg.Duration,
		RenderedDuration: duration,
	}, nil
}

// measure reads the duration from the WAV header and asks ffprobe when the
// file is not a WAV we can decode.
func (a *SpeechAssembler) measure(ctx context.Context, clipFile string) (float64, error) {
	if d, err := util.WavDuration(clipFile); err == nil && d > 0 {
		return d, nil
	}
	probe := a.probeDuration
	if probe == nil {
		probe = util.ProbeDuration
	}
	d, err := probe(ctx, clipFile)
	if err != nil {
		return 0, fmt.Errorf("measure clip %s: %w", filepath.Base(clipFile), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("clip %s has no audio", filepath.Base(clipFile))
	}
	return d, nil
}

// Combine joins the clips in order. It tries a sample-level join first,
// normalizes mismatched formats once, falls back to the ffmpeg concat
// demuxer and, as a last resort, ships the earliest clip alone.
func (a *SpeechAssembler) Combine(ctx context.Context, clips []types.AudioClip, workDir, outputFile string) (types.AssemblyStrategy, error) {
	if len(clips) == 0 {
		return "", apperrors.New(apperrors.CodeNoAudioClips, "no audio clips were generated")
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "create output directory failed", err)
	}
	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
	}

	_, err := a.concatWavs(paths, outputFile)
	if errors.Is(err, util.ErrWavFormatMismatch) {
		log.GetLogger().Info("clip formats differ, normalizing before join", zap.Error(err))
		var normalized []string
		normalized, err = a.normalizeClips(ctx, paths, workDir)
		if err == nil {
			_, err = a.concatWavs(normalized, outputFile)
		}
	}
	if err == nil {
		return types.AssemblyPcmConcat, nil
	}
	log.GetLogger().Warn("sample-level join failed, trying ffmpeg concat", zap.Error(err))

	if ctx.Err() != nil {
		return "", apperrors.Wrap(apperrors.CodeCanceled, "audio assembly canceled", ctx.Err())
	}
	if err = a.concatDemuxer(ctx, paths, outputFile); err == nil {
		return types.AssemblyFfmpegConcat, nil
	}
	log.GetLogger().Warn("ffmpeg concat failed, keeping only the first clip",
		zap.Error(err), zap.Int("clips", len(clips)))

	if err = util.CopyFile(clips[0].Path, outputFile); err != nil {
		return "", apperrors.Wrap(apperrors.CodeAudioCombineFailed, "no audio could be assembled", err)
	}
	return types.AssemblyFirstClip, nil
}

func (a *SpeechAssembler) normalizeClips(ctx context.Context, paths []string, workDir string) ([]string, error) {
	dir := filepath.Join(workDir, "normalized")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Join(dir, fmt.Sprintf("clip_%d.wav", i))
		if err := a.resample(ctx, p, out[i], normalizedSampleRate, normalizedChannels); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BuildTimeline places clips back to back using their rendered durations.
func BuildTimeline(clips []types.AudioClip) []types.TimelineEntry {
	entries := make([]types.TimelineEntry, len(clips))
	offset := 0.0
	for i, c := range clips {
		entries[i] = types.TimelineEntry{AudioPath: c.Path, TargetStart: offset}
		offset += c.RenderedDuration
	}
	return entries
}
