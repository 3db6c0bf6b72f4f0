package types

// VoiceParams is fixed for a whole run so every clip sounds the same.
type VoiceParams struct {
	VoiceId         string  `json:"voice_id"`
	ModelId         string  `json:"model_id,omitempty"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// AudioClip is a synthesized clip for one segment. Path is owned by the run
// workspace. RenderedDuration is what the audio actually lasts and may differ
// from PlannedDuration.
type AudioClip struct {
	Segment          NarrativeSegment `json:"segment"`
	Path             string           `json:"path"`
	PlannedStart     float64          `json:"planned_start"`
	PlannedDuration  float64          `json:"planned_duration"`
	RenderedDuration float64          `json:"rendered_duration"`
}

// TimelineEntry places a clip in the combined track. TargetStart is the sum
// of the rendered durations of every earlier clip.
type TimelineEntry struct {
	AudioPath   string  `json:"audio_path"`
	TargetStart float64 `json:"target_start"`
}

type AssemblyStrategy string

const (
	AssemblyPcmConcat    AssemblyStrategy = "pcm_concat"
	AssemblyFfmpegConcat AssemblyStrategy = "ffmpeg_concat"
	AssemblyFirstClip    AssemblyStrategy = "first_clip"
)

// Degraded reports whether the combined track holds less than all clips.
func (s AssemblyStrategy) Degraded() bool {
	return s == AssemblyFirstClip
}
