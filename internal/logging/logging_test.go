package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNew_ReturnsUsableLoggerForEachFormat(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger := New(format)
		logger.Info().Msg("smoke test")
		assert.NotNil(t, logger)
	}
}

func TestNewDeploymentLogFile_RotatesUnderLogRoot(t *testing.T) {
	dir := t.TempDir()
	w := NewDeploymentLogFile(dir, "dep-123")
	defer w.Close()

	lj, ok := w.(*lumberjack.Logger)
	if assert.True(t, ok, "expected a *lumberjack.Logger") {
		assert.Equal(t, filepath.Join(dir, "dep-123.log"), lj.Filename)
		assert.Equal(t, 10, lj.MaxSize)
		assert.Equal(t, 5, lj.MaxBackups)
		assert.Equal(t, 28, lj.MaxAge)
		assert.True(t, lj.Compress)
	}
}
