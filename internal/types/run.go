package types

const (
	RunStatusQueued    uint8 = 0
	RunStatusRunning   uint8 = 1
	RunStatusSucceeded uint8 = 2
	RunStatusFailed    uint8 = 3
)

const (
	OutputFormatJSON = "json"
	OutputFormatSRT  = "srt"
	OutputFormatVTT  = "vtt"
	OutputFormatYAML = "yaml"
)

// NarrationRun is the persisted record of one pipeline run.
type NarrationRun struct {
	Id           uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	RunId        string  `gorm:"uniqueIndex;size:64" json:"run_id"`
	Source       string  `json:"source"`
	OutputFormat string  `json:"output_format"`
	Mux          bool    `json:"mux"`
	Status       uint8   `gorm:"index" json:"status"`
	Stage        string  `json:"stage"`
	StatusMsg    string  `json:"status_msg"`
	FailReason   string  `json:"fail_reason,omitempty"`
	OutputDir    string  `json:"output_dir"`
	Duration     float64 `json:"duration"`
	SceneCount   int     `json:"scene_count"`
	SegmentCount int     `json:"segment_count"`
	ClipCount    int     `json:"clip_count"`
	Coverage     float64 `json:"coverage"`
	Strategy     string  `json:"strategy,omitempty"`
	Degraded     bool    `json:"degraded"`
	ScriptPath   string  `json:"script_path,omitempty"`
	AudioPath    string  `json:"audio_path,omitempty"`
	VideoPath    string  `json:"video_path,omitempty"`
	MuxError     string  `json:"mux_error,omitempty"`
	CreateTime   int64   `gorm:"autoCreateTime" json:"create_time"`
	UpdateTime   int64   `gorm:"autoUpdateTime" json:"update_time"`
}

func (r *NarrationRun) IsTerminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}
