// Package config loads and validates application configuration from the
// environment (and an optional config file), with sensible defaults so the
// control plane and worker can start with zero setup during local
// development. Values are read once at process start and passed through the
// app via dependency injection; no package-level config variable exists.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration values shared by the control plane and the
// worker process.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string

	// RedisURL backs both the Log Bus and the Job Queue.
	RedisURL string

	// DatabaseType selects the Deployment Store dialect: "postgresql" or "sqlite".
	DatabaseType string
	// DatabaseURL is the Postgres DSN, used when DatabaseType is "postgresql".
	DatabaseURL string
	// DatabasePath is the SQLite file path, used when DatabaseType is "sqlite".
	DatabasePath string
	DBPoolMin    int
	DBPoolMax    int

	// CORSOrigins is the comma-separated list of allowed origins.
	CORSOrigins []string

	// ContainerMemoryLimit and ContainerCPULimit are the default per-container
	// resource caps, overridable per deployment in future work.
	ContainerMemoryLimit string
	ContainerCPULimit    float64

	// PublicIP is used to build direct_url ({PUBLIC_IP}:{host_port}).
	PublicIP string

	// BaseDomain is the wildcard-routed suffix deployment URLs are built
	// under ({slug}.{BaseDomain}), resolved by the reverse proxy's {id} path
	// form when no wildcard DNS/router sits in front of this process.
	BaseDomain string

	// EngineHost is where the reverse proxy dials to reach container host
	// ports. Configured explicitly rather than hardcoding host.docker.internal,
	// per the portability note in the design notes.
	EngineHost string

	// SessionSecret is loaded from session_secret (the FLASK_SECRET_KEY
	// equivalent). No component reads it; session tokens are signed with
	// JWTSigningKey.
	SessionSecret string
	// JWTSigningKey signs the JWT session-auth middleware's tokens. Generated
	// ephemerally and logged once as a warning when unset, mirroring the
	// Django SECRET_KEY auto-generation behavior in the Recipe Synthesizer.
	JWTSigningKey string

	// MetricsAddr is the side-listener address serving /metrics, kept off the
	// main API port so Prometheus scraping never competes with rate limiting.
	MetricsAddr string

	// ServeRoot is the base directory where extracted/cloned deployment
	// source trees live. LogRoot is the directory for rotated per-deployment
	// log files (logging.NewDeploymentLogFile); neither binary passes it
	// there, so build logs are not written to disk.
	ServeRoot string
	LogRoot   string

	// LogFormat controls the zerolog output: "json" (default, prod) or
	// "console" (human-readable, local dev).
	LogFormat string
}

// Load reads configuration from the environment (and an optional
// corvus.yaml/env file on the search path) via viper, falling back to safe
// local-development defaults for every knob.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("corvus")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/corvus-paas")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("database_type", "sqlite")
	v.SetDefault("database_url", "")
	v.SetDefault("database_path", "./data/corvus.db")
	v.SetDefault("db_pool_min", 2)
	v.SetDefault("db_pool_max", 10)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("container_memory_limit", "512m")
	v.SetDefault("container_cpu_limit", 0.5)
	v.SetDefault("public_ip", "127.0.0.1")
	v.SetDefault("base_domain", "localhost")
	v.SetDefault("engine_host", "localhost")
	v.SetDefault("session_secret", "")
	v.SetDefault("jwt_signing_key", "")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("serve_root", "./data/deployments")
	v.SetDefault("log_root", "./data/logs")
	v.SetDefault("log_format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:                 v.GetString("port"),
		RedisURL:             v.GetString("redis_url"),
		DatabaseType:         v.GetString("database_type"),
		DatabaseURL:          v.GetString("database_url"),
		DatabasePath:         v.GetString("database_path"),
		DBPoolMin:            v.GetInt("db_pool_min"),
		DBPoolMax:            v.GetInt("db_pool_max"),
		CORSOrigins:          splitAndTrim(v.GetString("cors_origins")),
		ContainerMemoryLimit: v.GetString("container_memory_limit"),
		ContainerCPULimit:    v.GetFloat64("container_cpu_limit"),
		PublicIP:             v.GetString("public_ip"),
		BaseDomain:           v.GetString("base_domain"),
		EngineHost:           v.GetString("engine_host"),
		SessionSecret:        v.GetString("session_secret"),
		JWTSigningKey:        v.GetString("jwt_signing_key"),
		MetricsAddr:          v.GetString("metrics_addr"),
		ServeRoot:            v.GetString("serve_root"),
		LogRoot:              v.GetString("log_root"),
		LogFormat:            v.GetString("log_format"),
	}

	if cfg.DatabaseType != "postgresql" && cfg.DatabaseType != "sqlite" {
		return nil, fmt.Errorf("invalid database_type %q: must be postgresql or sqlite", cfg.DatabaseType)
	}

	return cfg, nil
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
