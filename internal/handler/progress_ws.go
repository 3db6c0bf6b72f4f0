package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"video-narrator/internal/response"
	"video-narrator/internal/storage"
	"video-narrator/log"
)

var progressPollInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WatchNarration streams the run status over a websocket whenever it
// changes and closes once the run has finished.
func (h *Handler) WatchNarration(c *gin.Context) {
	runId := c.Param("runId")
	if _, err := storage.GetRun(runId); err != nil {
		response.ErrorResponse(c, lookupError(err))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.GetLogger().Warn("websocket upgrade failed", zap.String("run_id", runId), zap.Error(err))
		return
	}
	defer conn.Close()

	// the reader only notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var lastStage, lastMsg string
	for {
		run, err := storage.GetRun(runId)
		if err != nil {
			_ = conn.WriteJSON(response.FromError(lookupError(err)))
			return
		}
		if run.Stage != lastStage || run.StatusMsg != lastMsg || run.IsTerminal() {
			lastStage, lastMsg = run.Stage, run.StatusMsg
			if err := conn.WriteJSON(response.Response{Msg: "success", Data: toStatus(run)}); err != nil {
				return
			}
		}
		if run.IsTerminal() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, run.Stage))
			return
		}

		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
