package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"video-narrator/internal/appcore"
	"video-narrator/internal/appdirs"
	"video-narrator/internal/response"
	"video-narrator/internal/storage"
	"video-narrator/internal/types"
	apperrors "video-narrator/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configurePathResolverForTest(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalResolver := appDirsResolver
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{
			OutputDir: filepath.Join(tempDir, "output"),
			CacheDir:  filepath.Join(tempDir, "cache"),
		}, nil
	}
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})
	return tempDir
}

func useTestDB(t *testing.T) {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "narrator.db"))
	require.NoError(t, err)
	original := storage.DB
	storage.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		storage.DB = original
	})
}

type recordingSubmitter struct {
	mu   sync.Mutex
	reqs []appcore.RunRequest
	err  error
}

func (s *recordingSubmitter) Submit(_ context.Context, req appcore.RunRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reqs = append(s.reqs, req)
	return nil
}

func buildRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.POST("/api/narrate", h.StartNarration)
	router.GET("/api/narrate", h.GetHistory)
	router.GET("/api/narrate/:runId", h.GetNarration)
	router.DELETE("/api/narrate/:runId", h.DeleteNarration)
	router.POST("/api/narrate/:runId/retry", h.RetryNarration)
	router.GET("/api/file/*filepath", h.DownloadFile)
	router.HEAD("/api/file/*filepath", h.DownloadFile)
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDownloadFile_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)

	req, _ := http.NewRequest("HEAD", "/api/file/runs/nonexistent/narration.wav", nil)
	w := httptest.NewRecorder()
	buildRouter(&Handler{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadFile_GET_ReturnsFileContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tempDir := configurePathResolverForTest(t)

	runDir := filepath.Join(tempDir, "output", "runs", "clip_20240101-101010_ab12")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	testContent := "1\n00:00:05,500 --> 00:00:12,250\nHello\n"
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "narration_script.srt"), []byte(testContent), 0o644))

	req, _ := http.NewRequest("GET", "/api/file/runs/clip_20240101-101010_ab12/narration_script.srt", nil)
	w := httptest.NewRecorder()
	buildRouter(&Handler{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testContent, w.Body.String())
}

func TestDownloadFile_EmptyPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)

	req, _ := http.NewRequest("GET", "/api/file/", nil)
	w := httptest.NewRecorder()
	buildRouter(&Handler{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadFile_PathTraversalBlocked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)

	req, _ := http.NewRequest("GET", "/api/file/runs/../../etc/passwd", nil)
	w := httptest.NewRecorder()
	buildRouter(&Handler{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadFile_OnlyServesRunRoot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tempDir := configurePathResolverForTest(t)
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "cache", "narrator.db"), []byte("x"), 0o644))

	req, _ := http.NewRequest("GET", "/api/file/cache/narrator.db", nil)
	w := httptest.NewRecorder()
	buildRouter(&Handler{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake video bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestStartNarrationWithUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tempDir := configurePathResolverForTest(t)
	useTestDB(t)

	submitter := &recordingSubmitter{}
	body, contentType := multipartUpload(t, map[string]string{"output_format": "SRT", "mux_video": "true"}, "my clip.mp4")
	req, _ := http.NewRequest("POST", "/api/narrate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	buildRouter(NewHandler(nil, submitter)).ServeHTTP(w, req)

	resp := decode(t, w)
	require.Equal(t, int32(0), resp.Error, resp.Msg)
	require.Len(t, submitter.reqs, 1)

	got := submitter.reqs[0]
	assert.Equal(t, types.OutputFormatSRT, got.OutputFormat)
	assert.True(t, got.Mux)
	assert.True(t, strings.HasPrefix(got.Source, filepath.Join(tempDir, "cache", "uploads", got.RunID)))
	assert.Equal(t, "my_clip.mp4", filepath.Base(got.Source))
	assert.FileExists(t, got.Source)

	run, err := storage.GetRun(got.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusQueued, run.Status)
}

func TestStartNarrationValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)
	useTestDB(t)

	tests := []struct {
		name   string
		fields map[string]string
		code   int
	}{
		{name: "no video", fields: map[string]string{}, code: apperrors.CodeInvalidParams},
		{name: "bad format", fields: map[string]string{"video_url": "https://example.com/a.mp4", "output_format": "docx"}, code: apperrors.CodeUnsupportedForm},
		{name: "not a url", fields: map[string]string{"video_url": "ftp://example.com/a.mp4"}, code: apperrors.CodeUnsupportedURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &recordingSubmitter{}
			body, contentType := multipartUpload(t, tt.fields, "")
			req, _ := http.NewRequest("POST", "/api/narrate", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			buildRouter(NewHandler(nil, submitter)).ServeHTTP(w, req)

			assert.Equal(t, int32(tt.code), decode(t, w).Error)
			assert.Empty(t, submitter.reqs)
		})
	}
}

func TestStartNarrationMarksRejectedRunFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)
	useTestDB(t)

	submitter := &recordingSubmitter{err: errors.New("run queue is full")}
	body, contentType := multipartUpload(t, map[string]string{"video_url": "https://example.com/a.mp4"}, "")
	req, _ := http.NewRequest("POST", "/api/narrate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	buildRouter(NewHandler(nil, submitter)).ServeHTTP(w, req)

	assert.NotEqual(t, int32(0), decode(t, w).Error)
	runs, err := storage.GetRunHistory(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].FailReason, "queue is full")
}

func TestGetNarration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)
	useTestDB(t)
	require.NoError(t, storage.SaveRun(&types.NarrationRun{
		RunId: "run_x", Source: "a.mp4", Status: types.RunStatusRunning, Stage: appcore.RunStageSynthesizing.String(),
	}))

	router := buildRouter(&Handler{})

	req, _ := http.NewRequest("GET", "/api/narrate/run_x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp := decode(t, w)
	require.Equal(t, int32(0), resp.Error)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "running", data["status"])
	assert.Equal(t, float64(appcore.RunStageSynthesizing.Percent()), data["process_percent"])

	req, _ = http.NewRequest("GET", "/api/narrate/missing", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, int32(apperrors.CodeNotFound), decode(t, w).Error)
}

func TestRetryNarration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)
	useTestDB(t)
	require.NoError(t, storage.SaveRun(&types.NarrationRun{
		RunId: "run_failed", Source: "https://example.com/a.mp4", OutputFormat: "vtt", Status: types.RunStatusFailed,
	}))
	require.NoError(t, storage.SaveRun(&types.NarrationRun{
		RunId: "run_ok", Source: "b.mp4", Status: types.RunStatusSucceeded,
	}))

	submitter := &recordingSubmitter{}
	router := buildRouter(NewHandler(nil, submitter))

	req, _ := http.NewRequest("POST", "/api/narrate/run_failed/retry", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, int32(0), decode(t, w).Error)
	require.Len(t, submitter.reqs, 1)
	assert.Equal(t, "run_failed", submitter.reqs[0].RunID)
	assert.Equal(t, "vtt", submitter.reqs[0].OutputFormat)

	req, _ = http.NewRequest("POST", "/api/narrate/run_ok/retry", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, int32(apperrors.CodeInvalidParams), decode(t, w).Error)
	assert.Len(t, submitter.reqs, 1)
}

func TestHistoryAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	configurePathResolverForTest(t)
	useTestDB(t)
	require.NoError(t, storage.SaveRun(&types.NarrationRun{RunId: "run_a", Source: "a.mp4", Status: types.RunStatusFailed}))

	router := buildRouter(&Handler{})

	req, _ := http.NewRequest("GET", "/api/narrate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp := decode(t, w)
	require.Equal(t, int32(0), resp.Error)
	assert.Len(t, resp.Data.([]any), 1)

	req, _ = http.NewRequest("DELETE", "/api/narrate/run_a", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, int32(0), decode(t, w).Error)

	_, err := storage.GetRun("run_a")
	assert.Error(t, err)
}
