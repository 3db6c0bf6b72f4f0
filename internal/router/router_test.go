package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"video-narrator/internal/handler"
)

func TestSetupRouterRegistersNarrationRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRouter(r, handler.NewHandler(nil, nil))

	routes := map[string]bool{}
	for _, route := range r.Routes() {
		routes[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"POST /api/narrate",
		"GET /api/narrate",
		"GET /api/narrate/:runId",
		"GET /api/narrate/:runId/ws",
		"DELETE /api/narrate/:runId",
		"POST /api/narrate/:runId/retry",
		"GET /api/file/*filepath",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
