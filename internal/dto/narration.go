package dto

// StartNarrationReq carries the form fields of POST /api/narrate. The video
// arrives either as the multipart "file" or as video_url.
type StartNarrationReq struct {
	VideoUrl     string `form:"video_url" json:"video_url"`
	OutputFormat string `form:"output_format" json:"output_format"`
	MuxVideo     bool   `form:"mux_video" json:"mux_video"`
}

type StartNarrationResData struct {
	RunId     string `json:"run_id"`
	StatusUrl string `json:"status_url"`
}

type NarrationFile struct {
	Name        string `json:"name"`
	DownloadUrl string `json:"download_url"`
}

// NarrationStatus is the API view of a stored run.
type NarrationStatus struct {
	RunId          string          `json:"run_id"`
	Source         string          `json:"source"`
	Status         string          `json:"status"`
	Stage          string          `json:"stage"`
	ProcessPercent int             `json:"process_percent"`
	StatusMsg      string          `json:"status_msg"`
	FailReason     string          `json:"fail_reason,omitempty"`
	Duration       float64         `json:"duration"`
	SceneCount     int             `json:"scene_count"`
	SegmentCount   int             `json:"segment_count"`
	ClipCount      int             `json:"clip_count"`
	Coverage       float64         `json:"coverage"`
	Strategy       string          `json:"assembly_strategy,omitempty"`
	Degraded       bool            `json:"degraded"`
	MuxError       string          `json:"mux_error,omitempty"`
	Files          []NarrationFile `json:"files,omitempty"`
	CreateTime     int64           `json:"create_time"`
	UpdateTime     int64           `json:"update_time"`
}

// ConfigView is the config as the API shows it, with secrets masked.
type ConfigView struct {
	LlmBaseUrl        string  `json:"llm_base_url"`
	LlmApiKey         string  `json:"llm_api_key"`
	VisionModel       string  `json:"vision_model"`
	NarrativeModel    string  `json:"narrative_model"`
	TtsProvider       string  `json:"tts_provider"`
	VoiceId           string  `json:"voice_id"`
	VoiceName         string  `json:"voice_name"`
	Stability         float64 `json:"stability"`
	SimilarityBoost   float64 `json:"similarity_boost"`
	ElevenLabsApiKey  string  `json:"elevenlabs_api_key"`
	MinimaxApiKey     string  `json:"minimax_api_key"`
	MinimaxGroupId    string  `json:"minimax_group_id"`
	CoverageTolerance float64 `json:"coverage_tolerance"`
	SceneThreshold    float64 `json:"scene_threshold"`
}

// UpdateConfigReq only touches the fields that are set.
type UpdateConfigReq struct {
	LlmBaseUrl        *string  `json:"llm_base_url"`
	LlmApiKey         *string  `json:"llm_api_key"`
	VisionModel       *string  `json:"vision_model"`
	NarrativeModel    *string  `json:"narrative_model"`
	TtsProvider       *string  `json:"tts_provider"`
	VoiceId           *string  `json:"voice_id"`
	VoiceName         *string  `json:"voice_name"`
	Stability         *float64 `json:"stability"`
	SimilarityBoost   *float64 `json:"similarity_boost"`
	ElevenLabsApiKey  *string  `json:"elevenlabs_api_key"`
	MinimaxApiKey     *string  `json:"minimax_api_key"`
	MinimaxGroupId    *string  `json:"minimax_group_id"`
	CoverageTolerance *float64 `json:"coverage_tolerance"`
	SceneThreshold    *float64 `json:"scene_threshold"`
}
