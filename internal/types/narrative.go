package types

// NarrativeSegment is one timed unit of narration text. JSON field names are
// part of the script output format.
type NarrativeSegment struct {
	SceneIdx  int     `json:"scene_idx" yaml:"scene_idx"`
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
	Duration  float64 `json:"duration" yaml:"duration"`
	Text      string  `json:"text" yaml:"text"`
}

// NarrativeScript is the document shape both the model is asked to return
// and the json/yaml script renderers write.
type NarrativeScript struct {
	Segments []NarrativeSegment `json:"segments" yaml:"segments"`
}

// SceneDescription is what the narrative model sees for each scene.
type SceneDescription struct {
	SceneIdx    int     `json:"scene_idx"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"`
	SceneType   string  `json:"scene_type"`
	Description string  `json:"description"`
}

var FrameDescriptionPrompt = `Describe this video frame concisely in 1-2 sentences.
Focus on: the main subject or action, the setting, notable visual elements and the mood.
This is scene %d of a video.`

var NarrativeSystemPrompt = `You are a professional documentary narrator. You write short, vivid narration that is timed to the picture.
Always answer with a single JSON object and nothing else.`

var NarrativeUserPrompt = `Write narration for a video that is %.1f seconds long.

Scene descriptions with timings (JSON):
%s

Requirements:
1. Produce one or more narration segments per scene, timed within the scene boundaries.
2. Speak at a natural pace of about 130-150 words per minute, so a segment's text must fit its duration.
3. Together the segments must cover the whole video from 0 to %.1f seconds without overlapping.
4. Keep an engaging, informative documentary tone and connect the scenes into one story.

Return JSON in exactly this shape:
{
  "segments": [
    {"scene_idx": 0, "start_time": 0.0, "end_time": 4.5, "duration": 4.5, "text": "narration text"}
  ]
}`
