package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_ServeAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "scanner.db")
	cfg.LogDirectory = t.TempDir()

	application, err := NewApp(cfg, logger.NewWithWriter(io.Discard))
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- application.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "scanner controller running", body["status"])

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewScanner_RequiresToken(t *testing.T) {
	cfg := config.Default()
	cfg.BackendToken = ""

	_, err := NewScanner(context.Background(), cfg, logger.NewWithWriter(io.Discard))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewScanner_MissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.BackendToken = "tok"
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	_, err := NewScanner(context.Background(), cfg, logger.NewWithWriter(io.Discard))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}
