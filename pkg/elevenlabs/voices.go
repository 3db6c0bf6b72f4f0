package elevenlabs

import (
	"context"
	"fmt"
	"strings"

	apperrors "video-narrator/pkg/errors"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

type Voice struct {
	VoiceId  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	var out voicesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/voices")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("elevenlabs list voices: %s", resp.Status())
	}
	return out.Voices, nil
}

// ResolveVoiceId maps a human voice name onto a voice id, tolerating small
// spelling differences.
func (c *Client) ResolveVoiceId(ctx context.Context, name string) (string, error) {
	voices, err := c.ListVoices(ctx)
	if err != nil {
		return "", err
	}
	v, ok := closestVoice(voices, name)
	if !ok {
		return "", apperrors.WrapWithDetail(apperrors.CodeVoiceNotFound, "Voice not found", name, nil)
	}
	return v.VoiceId, nil
}

// closestVoice accepts an exact case-insensitive match, otherwise the voice
// with the smallest edit distance when that distance is under a third of the
// requested name's length.
func closestVoice(voices []Voice, name string) (Voice, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return Voice{}, false
	}

	best := -1
	bestDist := 0
	for i, v := range voices {
		got := strings.ToLower(v.Name)
		if got == want {
			return v, true
		}
		d := levenshtein.DistanceForStrings([]rune(got), []rune(want), levenshtein.DefaultOptions)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 || bestDist*3 > len([]rune(want)) {
		return Voice{}, false
	}
	return voices[best], true
}
