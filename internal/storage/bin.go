package storage

// Resolved locations of the external tools. internal/deps rewrites these
// once it has found the binaries.
var (
	FfmpegPath  = "ffmpeg"
	FfprobePath = "ffprobe"
)
