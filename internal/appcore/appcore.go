// Package appcore holds the run vocabulary shared by the pipeline, the
// runners that execute it and the API that reports on it.
package appcore

import (
	"context"
	"time"
)

type RunRequest struct {
	RunID        string `json:"run_id"`
	Source       string `json:"source"`
	OutputRoot   string `json:"output_root,omitempty"`
	OutputFormat string `json:"output_format"`
	Mux          bool   `json:"mux"`
}

type RunStage uint8

const (
	RunStageQueued RunStage = iota + 1
	RunStagePreparing
	RunStageDetecting
	RunStageDescribing
	RunStagePlanning
	RunStageSynthesizing
	RunStageRendering
	RunStageMuxing
	RunStageSucceeded
	RunStageFailed
	RunStageCanceled
)

func (s RunStage) String() string {
	switch s {
	case RunStageQueued:
		return "queued"
	case RunStagePreparing:
		return "preparing"
	case RunStageDetecting:
		return "detecting_scenes"
	case RunStageDescribing:
		return "describing_scenes"
	case RunStagePlanning:
		return "planning_narrative"
	case RunStageSynthesizing:
		return "synthesizing_speech"
	case RunStageRendering:
		return "rendering_outputs"
	case RunStageMuxing:
		return "muxing_video"
	case RunStageSucceeded:
		return "succeeded"
	case RunStageFailed:
		return "failed"
	case RunStageCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s RunStage) IsTerminal() bool {
	return s == RunStageSucceeded || s == RunStageFailed || s == RunStageCanceled
}

// Percent is a coarse progress figure for UIs.
func (s RunStage) Percent() int {
	switch s {
	case RunStageQueued:
		return 0
	case RunStagePreparing:
		return 5
	case RunStageDetecting:
		return 15
	case RunStageDescribing:
		return 30
	case RunStagePlanning:
		return 45
	case RunStageSynthesizing:
		return 60
	case RunStageRendering:
		return 85
	case RunStageMuxing:
		return 92
	case RunStageSucceeded, RunStageFailed, RunStageCanceled:
		return 100
	default:
		return 0
	}
}

type RunEvent struct {
	RunID      string
	Stage      RunStage
	Message    string
	Err        error
	OccurredAt time.Time
}

// Reporter receives stage transitions. Implementations must not block.
type Reporter interface {
	Report(event RunEvent)
}

type ReporterFunc func(event RunEvent)

func (f ReporterFunc) Report(event RunEvent) {
	f(event)
}

// Submitter hands a run to whatever executes it.
type Submitter interface {
	Submit(ctx context.Context, req RunRequest) error
}
