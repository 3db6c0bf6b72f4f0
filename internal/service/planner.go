package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
	"video-narrator/pkg/util"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCoverageTolerance = 0.95
	defaultDescribeWorkers   = 3
)

// NarrativePlanner turns scenes into timed narration segments. Model output
// is never trusted: every plan it returns is repaired or replaced.
type NarrativePlanner struct {
	Describer         types.FrameDescriber
	Chat              types.ChatCompleter
	CoverageTolerance float64
	DescribeWorkers   int
}

// PlanResult carries the segments plus what the planner learned on the way.
type PlanResult struct {
	Summaries []string                 `json:"summaries"`
	Segments  []types.NarrativeSegment `json:"segments"`
	Fallback  bool                     `json:"fallback"`
	Coverage  float64                  `json:"coverage"`
}

func NewNarrativePlanner(describer types.FrameDescriber, chat types.ChatCompleter, coverageTolerance float64) *NarrativePlanner {
	return &NarrativePlanner{
		Describer:         describer,
		Chat:              chat,
		CoverageTolerance: coverageTolerance,
		DescribeWorkers:   defaultDescribeWorkers,
	}
}

// Plan describes every scene and asks for one narrative covering all of
// them. An empty scene list yields an empty plan.
func (p *NarrativePlanner) Plan(ctx context.Context, scenes []types.Scene, videoDuration float64) (*PlanResult, error) {
	if len(scenes) == 0 {
		return &PlanResult{}, nil
	}

	summaries, err := p.DescribeScenes(ctx, scenes)
	if err != nil {
		return nil, err
	}
	segments, fallback, err := p.PlanFromSummaries(ctx, scenes, summaries, videoDuration)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		Summaries: summaries,
		Segments:  segments,
		Fallback:  fallback,
		Coverage:  Coverage(segments, videoDuration),
	}, nil
}

// DescribeScenes returns one summary per scene, in scene order. A failed or
// impossible description becomes a placeholder and never aborts.
func (p *NarrativePlanner) DescribeScenes(ctx context.Context, scenes []types.Scene) ([]string, error) {
	summaries := make([]string, len(scenes))
	workers := p.DescribeWorkers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	var mu sync.Mutex
	for i, sc := range scenes {
		i, sc := i, sc
		g.Go(func() error {
			summary := p.describeScene(ctx, i, sc)
			mu.Lock()
			summaries[i] = summary
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCanceled, "scene description canceled", err)
	}
	return summaries, nil
}

func (p *NarrativePlanner) describeScene(ctx context.Context, i int, sc types.Scene) string {
	if sc.VisualSummary != "" {
		return sc.VisualSummary
	}
	if sc.KeyframePath == "" || p.Describer == nil {
		return fmt.Sprintf("Scene %d (unknown content)", i+1)
	}

	text, err := p.Describer.DescribeImage(ctx, sc.KeyframePath, fmt.Sprintf(types.FrameDescriptionPrompt, i+1))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		log.GetLogger().Warn("scene description failed, using placeholder",
			zap.Int("scene", i), zap.Error(err))
		return fmt.Sprintf("Scene %d (analysis failed)", i+1)
	}
	return text
}

// PlanFromSummaries runs the narrative model once and repairs its answer.
// The bool result reports whether scene-aligned narration replaced it.
func (p *NarrativePlanner) PlanFromSummaries(ctx context.Context, scenes []types.Scene, summaries []string, videoDuration float64) ([]types.NarrativeSegment, bool, error) {
	if len(scenes) == 0 {
		return nil, false, nil
	}

	raw, err := p.requestNarrative(ctx, scenes, summaries, videoDuration)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeCanceled, "narrative planning canceled", ctxErr)
	}
	if err != nil {
		log.GetLogger().Warn("narrative generation failed, narrating scene by scene", zap.Error(err))
		return SceneAlignedNarrative(scenes, summaries), true, nil
	}

	segments := RepairSegments(parseNarrative(raw), videoDuration)
	if len(segments) == 0 {
		log.GetLogger().Warn("narrative model returned no usable segments, narrating scene by scene")
		return SceneAlignedNarrative(scenes, summaries), true, nil
	}

	tolerance := p.CoverageTolerance
	if tolerance <= 0 {
		tolerance = defaultCoverageTolerance
	}
	if cov := Coverage(segments, videoDuration); cov < tolerance {
		log.GetLogger().Warn("narrative leaves too much of the video silent, narrating scene by scene",
			zap.Float64("coverage", cov), zap.Float64("tolerance", tolerance))
		return SceneAlignedNarrative(scenes, summaries), true, nil
	}
	return segments, false, nil
}

func (p *NarrativePlanner) requestNarrative(ctx context.Context, scenes []types.Scene, summaries []string, videoDuration float64) (string, error) {
	if p.Chat == nil {
		return "", apperrors.New(apperrors.CodeNarrativeFailed, "no narrative model configured")
	}
	descriptions := lo.Map(scenes, func(sc types.Scene, i int) types.SceneDescription {
		return types.SceneDescription{
			SceneIdx:    i,
			StartTime:   round3(sc.StartTime),
			EndTime:     round3(sc.EndTime),
			Duration:    round3(sc.Duration),
			SceneType:   lo.Ternary(sc.SceneType == "", types.SceneTypeUnknown, sc.SceneType),
			Description: summaries[i],
		}
	})
	payload, err := json.MarshalIndent(descriptions, "", "  ")
	if err != nil {
		return "", err
	}
	userPrompt := fmt.Sprintf(types.NarrativeUserPrompt, videoDuration, payload, videoDuration)
	return p.Chat.JSONCompletion(ctx, types.NarrativeSystemPrompt, userPrompt)
}

// parseNarrative accepts {"segments": [...]} or a bare array, optionally
// wrapped in prose or a code fence. Each segment is decoded on its own, so
// one malformed entry only costs that entry. Anything else yields nil.
func parseNarrative(raw string) []types.NarrativeSegment {
	body := []byte(util.ExtractJsonFromText(raw))

	var items []json.RawMessage
	var doc struct {
		Segments []json.RawMessage `json:"segments"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Segments) > 0 {
		items = doc.Segments
	} else if err := json.Unmarshal(body, &items); err != nil {
		log.GetLogger().Debug("unparseable narrative reply", zap.String("reply", raw))
		return nil
	}

	segments := make([]types.NarrativeSegment, 0, len(items))
	for i, item := range items {
		seg, err := decodeSegment(item)
		if err != nil {
			log.GetLogger().Warn("dropping malformed narrative segment", zap.Int("segment", i), zap.Error(err))
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// decodeSegment reads one model segment. Numbers may arrive as JSON
// numbers or numeric strings; scene_idx must be whole. The model's
// duration is ignored since RepairSegments recomputes it.
func decodeSegment(item json.RawMessage) (types.NarrativeSegment, error) {
	var fields map[string]any
	if err := json.Unmarshal(item, &fields); err != nil {
		return types.NarrativeSegment{}, err
	}

	var seg types.NarrativeSegment
	var err error
	if seg.StartTime, err = numberField(fields, "start_time"); err != nil {
		return seg, err
	}
	if seg.EndTime, err = numberField(fields, "end_time"); err != nil {
		return seg, err
	}
	idx, err := numberField(fields, "scene_idx")
	if err != nil {
		return seg, err
	}
	if idx != math.Trunc(idx) || math.IsInf(idx, 0) {
		return seg, fmt.Errorf("scene_idx %v is not a whole number", idx)
	}
	seg.SceneIdx = int(idx)

	text, ok := fields["text"].(string)
	if !ok {
		return seg, fmt.Errorf("text is missing or not a string")
	}
	seg.Text = text
	return seg, nil
}

func numberField(fields map[string]any, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is missing", key)
	}
	if _, isBool := v.(bool); isBool {
		return 0, fmt.Errorf("%s is a boolean", key)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// RepairSegments recomputes every duration from its bounds, drops segments
// that are empty in time or text, and sorts by start time keeping the
// model's order for ties. Unlike a plain accept-as-is it also clamps
// segments to [0, videoDuration], so a model overshoot never stretches
// the narration past the video.
func RepairSegments(in []types.NarrativeSegment, videoDuration float64) []types.NarrativeSegment {
	out := make([]types.NarrativeSegment, 0, len(in))
	for _, seg := range in {
		if !finite(seg.StartTime) || !finite(seg.EndTime) {
			continue
		}
		if seg.StartTime < 0 {
			seg.StartTime = 0
		}
		if videoDuration > 0 && seg.EndTime > videoDuration {
			seg.EndTime = videoDuration
		}
		if seg.EndTime <= seg.StartTime {
			continue
		}
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		seg.Duration = seg.EndTime - seg.StartTime
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// SceneAlignedNarrative narrates each scene with its own summary and
// exactly its own timing.
func SceneAlignedNarrative(scenes []types.Scene, summaries []string) []types.NarrativeSegment {
	return lo.Map(scenes, func(sc types.Scene, i int) types.NarrativeSegment {
		summary := ""
		if i < len(summaries) {
			summary = summaries[i]
		}
		return types.NarrativeSegment{
			SceneIdx:  i,
			StartTime: sc.StartTime,
			EndTime:   sc.EndTime,
			Duration:  sc.EndTime - sc.StartTime,
			Text:      "In this scene, " + summary,
		}
	})
}

// Coverage is the share of [0, videoDuration] covered by the union of the
// segments.
func Coverage(segments []types.NarrativeSegment, videoDuration float64) float64 {
	if videoDuration <= 0 || len(segments) == 0 {
		return 0
	}
	sorted := make([]types.NarrativeSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime < sorted[j].StartTime })

	covered := 0.0
	curStart, curEnd := math.Inf(-1), math.Inf(-1)
	for _, seg := range sorted {
		start := math.Max(0, seg.StartTime)
		end := math.Min(videoDuration, seg.EndTime)
		if end <= start {
			continue
		}
		if start > curEnd {
			if curEnd > curStart {
				covered += curEnd - curStart
			}
			curStart, curEnd = start, end
			continue
		}
		curEnd = math.Max(curEnd, end)
	}
	if curEnd > curStart {
		covered += curEnd - curStart
	}
	return math.Min(1, covered/videoDuration)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
