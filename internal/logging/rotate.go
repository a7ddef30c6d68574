package logging

import (
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLumberjackWriter configures log rotation for a single deployment's
// build-log mirror: 10MB per file, 5 backups retained, 28 days max age.
// These numbers are generous for a single-host deployment platform where a
// handful of long-lived deployments are expected, not hundreds.
func newLumberjackWriter(logRoot, deploymentID string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logRoot, deploymentID+".log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
}
