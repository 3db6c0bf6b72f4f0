package appcore

import (
	"context"
	"testing"
	"time"
)

var _ Submitter = (*stubSubmitter)(nil)
var _ Reporter = ReporterFunc(nil)

type stubSubmitter struct {
	lastReq RunRequest
}

func (s *stubSubmitter) Submit(_ context.Context, req RunRequest) error {
	s.lastReq = req
	return nil
}

func TestRunStageStringAndTerminal(t *testing.T) {
	testCases := []struct {
		stage      RunStage
		wantString string
		terminal   bool
	}{
		{stage: RunStageQueued, wantString: "queued"},
		{stage: RunStagePreparing, wantString: "preparing"},
		{stage: RunStageDetecting, wantString: "detecting_scenes"},
		{stage: RunStageDescribing, wantString: "describing_scenes"},
		{stage: RunStagePlanning, wantString: "planning_narrative"},
		{stage: RunStageSynthesizing, wantString: "synthesizing_speech"},
		{stage: RunStageRendering, wantString: "rendering_outputs"},
		{stage: RunStageMuxing, wantString: "muxing_video"},
		{stage: RunStageSucceeded, wantString: "succeeded", terminal: true},
		{stage: RunStageFailed, wantString: "failed", terminal: true},
		{stage: RunStageCanceled, wantString: "canceled", terminal: true},
		{stage: RunStage(0), wantString: "unknown"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.wantString, func(t *testing.T) {
			if got := tc.stage.String(); got != tc.wantString {
				t.Fatalf("String() = %q, want %q", got, tc.wantString)
			}
			if got := tc.stage.IsTerminal(); got != tc.terminal {
				t.Fatalf("IsTerminal() = %t, want %t", got, tc.terminal)
			}
		})
	}
}

func TestRunStagePercentIsMonotonic(t *testing.T) {
	last := -1
	for s := RunStageQueued; s <= RunStageSucceeded; s++ {
		if p := s.Percent(); p < last {
			t.Fatalf("%s percent %d is below previous %d", s, p, last)
		} else {
			last = p
		}
	}
}

func TestReporterFuncForwardsEvents(t *testing.T) {
	var got []RunEvent
	var reporter Reporter = ReporterFunc(func(e RunEvent) { got = append(got, e) })

	reporter.Report(RunEvent{RunID: "r1", Stage: RunStagePlanning, OccurredAt: time.Unix(10, 0)})
	if len(got) != 1 || got[0].Stage != RunStagePlanning || got[0].RunID != "r1" {
		t.Fatalf("reporter received %+v", got)
	}
}

func TestSubmitterReceivesRequest(t *testing.T) {
	s := &stubSubmitter{}
	req := RunRequest{RunID: "r2", Source: "clip.mp4", OutputFormat: "srt", Mux: true}
	if err := s.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if s.lastReq != req {
		t.Fatalf("Submit() stored %+v, want %+v", s.lastReq, req)
	}
}
