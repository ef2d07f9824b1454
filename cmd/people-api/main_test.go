package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/people-service/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
	})
}

func TestConfiguredLogger(t *testing.T) {
	t.Run("uses the configured level", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}}

		logger, err := configuredLogger(cfg)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("warn level hides info", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "warn", LogFormat: "json"}}

		logger, err := configuredLogger(cfg)
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zap.InfoLevel))
		assert.True(t, logger.Core().Enabled(zap.WarnLevel))
	})

	t.Run("invalid format", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "info", LogFormat: "xml"}}

		logger, err := configuredLogger(cfg)
		require.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "failed to configure logger")
	})
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("COGNITO_REGION", "")
	t.Setenv("COGNITO_USER_POOL_ID", "")

	err := run(context.Background(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestServe_GracefulShutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := &config.Config{Server: config.ServerConfig{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}}
	srv := newServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.Addr = addr

	errCh := make(chan error, 1)
	go func() { errCh <- serve(srv, cfg) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{
		Host:         "0.0.0.0",
		Port:         9090,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 7 * time.Second,
	}}

	srv := newServer(cfg, http.NotFoundHandler())
	assert.Equal(t, "0.0.0.0:9090", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 7*time.Second, srv.WriteTimeout)
}
