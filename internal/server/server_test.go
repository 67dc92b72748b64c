// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/health"
)

func TestShutdownFlipsReadiness(t *testing.T) {
	hh := health.NewHandler(health.Dependency{
		Name:    "database",
		Checker: health.CheckerFunc(func(context.Context) error { return nil }),
	})
	srv := New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: hh,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	hh.RegisterRoutes(srv.Router())

	ready := func() (int, string) {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		status, _ := body["status"].(string)
		return w.Code, status
	}

	code, status := ready()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", status)

	require.NoError(t, srv.Shutdown(context.Background(), 0))

	code, status = ready()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting_down", status)
}
