package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"video-narrator/config"
	"video-narrator/internal/dto"
	"video-narrator/internal/response"
	"video-narrator/log"
	apperrors "video-narrator/pkg/errors"
)

func maskSecret(s string) string {
	if len(s) <= 8 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func configView(conf config.Config) dto.ConfigView {
	return dto.ConfigView{
		LlmBaseUrl:        conf.Llm.BaseUrl,
		LlmApiKey:         maskSecret(conf.Llm.ApiKey),
		VisionModel:       conf.Llm.VisionModel,
		NarrativeModel:    conf.Llm.NarrativeModel,
		TtsProvider:       conf.Tts.Provider,
		VoiceId:           conf.Tts.VoiceId,
		VoiceName:         conf.Tts.VoiceName,
		Stability:         conf.Tts.Stability,
		SimilarityBoost:   conf.Tts.SimilarityBoost,
		ElevenLabsApiKey:  maskSecret(conf.Tts.ElevenLabs.ApiKey),
		MinimaxApiKey:     maskSecret(conf.Tts.Minimax.ApiKey),
		MinimaxGroupId:    conf.Tts.Minimax.GroupId,
		CoverageTolerance: conf.Narrative.CoverageTolerance,
		SceneThreshold:    conf.Scene.Threshold,
	}
}

func (h *Handler) GetConfig(c *gin.Context) {
	response.Success(c, configView(config.Conf))
}

// UpdateConfig applies the set fields, validates, saves and rebuilds the
// service. Runs already in progress keep the old clients.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "invalid parameters", err))
		return
	}

	next := config.Conf
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&next.Llm.BaseUrl, req.LlmBaseUrl)
	setString(&next.Llm.ApiKey, req.LlmApiKey)
	setString(&next.Llm.VisionModel, req.VisionModel)
	setString(&next.Llm.NarrativeModel, req.NarrativeModel)
	setString(&next.Tts.Provider, req.TtsProvider)
	setString(&next.Tts.VoiceId, req.VoiceId)
	setString(&next.Tts.VoiceName, req.VoiceName)
	setString(&next.Tts.ElevenLabs.ApiKey, req.ElevenLabsApiKey)
	setString(&next.Tts.Minimax.ApiKey, req.MinimaxApiKey)
	setString(&next.Tts.Minimax.GroupId, req.MinimaxGroupId)
	setFloat(&next.Tts.Stability, req.Stability)
	setFloat(&next.Tts.SimilarityBoost, req.SimilarityBoost)
	setFloat(&next.Narrative.CoverageTolerance, req.CoverageTolerance)
	setFloat(&next.Scene.Threshold, req.SceneThreshold)

	if err := next.Validate(); err != nil {
		response.ErrorResponse(c, err)
		return
	}

	previous := config.Conf
	config.Conf = next
	if err := config.SaveConfig(); err != nil {
		config.Conf = previous
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "save config failed", err))
		return
	}
	h.reloadService(next)
	log.GetLogger().Info("config updated, service rebuilt", zap.String("ttsProvider", next.Tts.Provider))
	response.Success(c, configView(next))
}
