package types

// FrameRange is a half-open [Start, End) range of frame indices reported by
// a scene detector.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SceneDetection is the raw detector output before conversion to seconds.
type SceneDetection struct {
	FPS         float64      `json:"fps"`
	TotalFrames int          `json:"total_frames"`
	Ranges      []FrameRange `json:"ranges"`
}

const (
	SceneTypeWide    = "wide-shot"
	SceneTypeMedium  = "medium-shot"
	SceneTypeCloseUp = "close-up"
	SceneTypeUnknown = "unknown"
)

// Scene is one contiguous visual segment of the source video. Scenes are
// immutable once the timeline is built.
type Scene struct {
	Index         int     `json:"index"`
	StartFrame    int     `json:"start_frame"`
	EndFrame      int     `json:"end_frame"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Duration      float64 `json:"duration"`
	SceneType     string  `json:"scene_type,omitempty"`
	VisualSummary string  `json:"visual_summary,omitempty"`
	KeyframePath  string  `json:"-"`
}

type VideoMetadata struct {
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	HasAudio   bool    `json:"has_audio"`
}
