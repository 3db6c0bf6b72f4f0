// Package script renders a narrative into caption and data formats.
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"video-narrator/internal/types"
	apperrors "video-narrator/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	srtDecimal = ","
	vttDecimal = "."
)

// Formats lists the supported output formats.
var Formats = []string{types.OutputFormatJSON, types.OutputFormatSRT, types.OutputFormatVTT, types.OutputFormatYAML}

func IsSupported(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// FormatTimecode renders seconds as HH:MM:SS<sep>mmm, rounded to the nearest
// millisecond. Negative input renders as zero. Hours use at least two digits
// and widen past 99.
func FormatTimecode(seconds float64, sep string) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	h := totalMs / 3_600_000
	m := totalMs / 60_000 % 60
	s := totalMs / 1000 % 60
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}

// Render produces the script document for format.
func Render(format string, segments []types.NarrativeSegment) ([]byte, error) {
	switch strings.ToLower(format) {
	case types.OutputFormatJSON:
		return RenderJSON(segments)
	case types.OutputFormatSRT:
		return RenderSRT(segments), nil
	case types.OutputFormatVTT:
		return RenderVTT(segments), nil
	case types.OutputFormatYAML:
		return RenderYAML(segments)
	default:
		return nil, apperrors.New(apperrors.CodeUnsupportedForm, fmt.Sprintf("unsupported output format %q", format))
	}
}

// WriteFile renders segments and writes them to path.
func WriteFile(path, format string, segments []types.NarrativeSegment) error {
	data, err := Render(format, segments)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "write script", err)
	}
	return nil
}

func document(segments []types.NarrativeSegment) types.NarrativeScript {
	if segments == nil {
		segments = []types.NarrativeSegment{}
	}
	return types.NarrativeScript{Segments: segments}
}

func RenderJSON(segments []types.NarrativeSegment) ([]byte, error) {
	data, err := json.MarshalIndent(document(segments), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func RenderYAML(segments []types.NarrativeSegment) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document(segments)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func RenderSRT(segments []types.NarrativeSegment) []byte {
	var buf bytes.Buffer
	writeCues(&buf, segments, srtDecimal)
	return buf.Bytes()
}

func RenderVTT(segments []types.NarrativeSegment) []byte {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")
	writeCues(&buf, segments, vttDecimal)
	return buf.Bytes()
}

// writeCues emits 1-based numbered cue blocks separated by a blank line.
func writeCues(buf *bytes.Buffer, segments []types.NarrativeSegment, sep string) {
	for i, seg := range segments {
		fmt.Fprintf(buf, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimecode(seg.StartTime, sep),
			FormatTimecode(seg.EndTime, sep),
			strings.TrimSpace(seg.Text))
	}
}
