package util

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJsonFromText pulls the JSON payload out of a model reply: a fenced
// code block if there is one, otherwise the span from the first opening
// bracket to the last closing one. Text without brackets is returned as is.
func ExtractJsonFromText(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}
	end := strings.LastIndexAny(text, "}]")
	if end <= start {
		return text
	}
	return text[start : end+1]
}
