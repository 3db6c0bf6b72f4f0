// Package scene turns detector output into the ordered, gap-free scene
// timeline the rest of the pipeline consumes.
package scene

import (
	"fmt"
	"math"
	"sort"

	"video-narrator/internal/types"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"

	"go.uber.org/zap"
)

const timeEpsilon = 1e-6

// FromDetection converts frame ranges to seconds. Ranges are sorted, empty
// ones dropped, overlaps and gaps closed, and the last scene is stretched to
// videoDuration. No ranges at all means the whole video is one scene.
func FromDetection(det *types.SceneDetection, videoDuration float64) ([]types.Scene, error) {
	if videoDuration <= 0 {
		return nil, nil
	}
	if det == nil || len(det.Ranges) == 0 {
		return []types.Scene{wholeVideo(det, videoDuration)}, nil
	}
	if det.FPS <= 0 {
		return nil, apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("invalid frame rate %v", det.FPS))
	}

	ranges := normalizeRanges(det.Ranges)
	if len(ranges) == 0 {
		return []types.Scene{wholeVideo(det, videoDuration)}, nil
	}

	scenes := make([]types.Scene, 0, len(ranges))
	for i, r := range ranges {
		start := float64(r.Start) / det.FPS
		end := float64(r.End) / det.FPS
		if i == len(ranges)-1 {
			end = videoDuration
		}
		if start >= videoDuration {
			log.GetLogger().Warn("dropping scene past end of video",
				zap.Int("startFrame", r.Start), zap.Float64("videoDuration", videoDuration))
			continue
		}
		if end > videoDuration {
			end = videoDuration
		}
		scenes = append(scenes, types.Scene{
			Index:      len(scenes),
			StartFrame: r.Start,
			EndFrame:   r.End,
			StartTime:  start,
			EndTime:    end,
			Duration:   end - start,
		})
	}
	if len(scenes) > 0 {
		scenes[len(scenes)-1].EndTime = videoDuration
		last := &scenes[len(scenes)-1]
		last.Duration = last.EndTime - last.StartTime
	}
	return scenes, nil
}

func wholeVideo(det *types.SceneDetection, videoDuration float64) types.Scene {
	s := types.Scene{
		Index:     0,
		StartTime: 0,
		EndTime:   videoDuration,
		Duration:  videoDuration,
	}
	if det != nil && det.FPS > 0 {
		s.EndFrame = int(math.Round(videoDuration * det.FPS))
	}
	return s
}

func normalizeRanges(in []types.FrameRange) []types.FrameRange {
	ranges := make([]types.FrameRange, 0, len(in))
	for _, r := range in {
		if r.End > r.Start && r.Start >= 0 {
			ranges = append(ranges, r)
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	out := ranges[:0]
	for _, r := range ranges {
		if len(out) == 0 {
			r.Start = 0
			out = append(out, r)
			continue
		}
		prev := &out[len(out)-1]
		if r.End <= prev.End {
			// fully contained in the previous range
			continue
		}
		// make the two ranges touch whether they overlapped or left a gap
		if r.Start < prev.End {
			r.Start = prev.End
		} else {
			prev.End = r.Start
		}
		out = append(out, r)
	}
	return out
}

// Validate checks the ordering and coverage invariants of a scene list.
// frameInterval is the largest gap tolerated between neighbours.
func Validate(scenes []types.Scene, videoDuration, frameInterval float64) error {
	if len(scenes) == 0 {
		return apperrors.ErrNoScenes
	}
	tol := frameInterval + timeEpsilon
	if scenes[0].StartTime < 0 || scenes[0].StartTime > tol {
		return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("first scene starts at %.3fs", scenes[0].StartTime))
	}
	for i, s := range scenes {
		if s.EndTime <= s.StartTime {
			return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("scene %d is empty", i))
		}
		if math.Abs(s.Duration-(s.EndTime-s.StartTime)) > timeEpsilon {
			return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("scene %d duration does not match its bounds", i))
		}
		if i == 0 {
			continue
		}
		prev := scenes[i-1]
		if s.StartTime < prev.EndTime-timeEpsilon {
			return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("scene %d overlaps scene %d", i, i-1))
		}
		if s.StartTime-prev.EndTime > tol {
			return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("gap of %.3fs before scene %d", s.StartTime-prev.EndTime, i))
		}
	}
	if last := scenes[len(scenes)-1]; videoDuration-last.EndTime > tol {
		return apperrors.New(apperrors.CodeSceneDetect, fmt.Sprintf("scenes end at %.3fs of %.3fs", last.EndTime, videoDuration))
	}
	return nil
}
