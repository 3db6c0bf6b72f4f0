package tts

import apperrors "video-narrator/pkg/errors"

var errNoProvider = apperrors.WrapWithDetail(apperrors.CodeMissingCredential, "No TTS provider is configured",
	"set tts.elevenlabs.api_key, tts.openai.api_key or tts.minimax.api_key", nil)
