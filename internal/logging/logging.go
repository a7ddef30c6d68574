// Package logging constructs the process-wide structured logger. Every other
// package receives a zerolog.Logger explicitly through its constructor; no
// package-level logger is used, the same dependency-injection discipline the
// teacher codebase applied to its slog.Logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger. format "console" produces human-readable
// output for local development; any other value (including "json") produces
// structured JSON, matching the teacher's LogFormat convention.
func New(format string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer io.Writer = os.Stdout
	if format == "console" {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(writer).With().Timestamp().Caller().Logger()
}

// NewDeploymentLogFile returns a per-deployment file writer mirroring build
// logs to disk, rotated by lumberjack so long-lived deployments (repeated
// rebuilds, redeploys) never grow an unbounded log file. Mirrors the
// teacher's one-log-file-per-slug convention from openLogFileHelper.go,
// generalized to rotate instead of growing forever.
func NewDeploymentLogFile(logRoot, deploymentID string) io.WriteCloser {
	return newLumberjackWriter(logRoot, deploymentID)
}
