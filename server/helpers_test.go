package main

import (
	"testing"

	"github.com/phambaophuc/media-compress/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("RATE_LIMIT_BACKEND", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func nopLogger() *zap.Logger { return zap.NewNop() }
