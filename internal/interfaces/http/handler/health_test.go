package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qp-solver-api/internal/infrastructure/storage"
)

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	t.Run("Ready", func(t *testing.T) {
		h := NewHealthHandler(spool, true)
		engine := gin.New()
		engine.GET("/ready", h.Ready)

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("NotReadyWithoutCredential", func(t *testing.T) {
		h := NewHealthHandler(spool, false)
		engine := gin.New()
		engine.GET("/ready", h.Ready)

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_ready")
	})

	t.Run("HealthAndLive", func(t *testing.T) {
		h := NewHealthHandler(spool, true)
		engine := gin.New()
		engine.GET("/health", h.Health)
		engine.GET("/live", h.Live)

		for _, path := range []string{"/health", "/live"} {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
