package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smam/backend/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("无效级别回退到 info", func(t *testing.T) {
		log, err := New(config.LogConfig{Level: "loud"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(0))
		assert.False(t, log.Core().Enabled(-1))
	})

	t.Run("写入日志文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "smam.log")
		log, err := New(config.LogConfig{Level: "debug", File: path})
		require.NoError(t, err)

		log.Info("hello file")
		_ = log.Sync()

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "hello file")
	})
}
