package config

import (
	"github.com/auth-fusion/authfusion/internal/execution"
	"github.com/auth-fusion/authfusion/internal/pipeline"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/verdict"
	"github.com/auth-fusion/authfusion/util/conf"
)

type AuthConfig struct {
	// Key is the api key required by the scan endpoint. Empty disables the check.
	Key string `conf:"key"`
}

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Replay is the transport configuration
	Replay replay.Config `conf:"replay"`

	// Analyzer tunes the verdict heuristics
	Analyzer verdict.Config `conf:"analyzer"`

	// Execution bounds concurrent scans in the long-running modes
	Execution execution.Config `conf:"execution"`

	// Auth is the authentication config for the http api
	Auth AuthConfig `conf:"auth"`
}

// Pipeline returns the configuration shared by every pipeline.
func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Replay:   c.Replay,
		Analyzer: c.Analyzer,
	}
}

var DefaultConfig = conf.MergeDefaults("",
	conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
	},
	conf.MergeDefaults("replay", conf.DefaultConfig{
		"timeout":       replay.DefaultTimeout,
		"insecure":      true,
		"max_body_size": replay.DefaultMaxBodySize,
	}),
	conf.MergeDefaults("analyzer", conf.DefaultConfig{
		"min_body_size":        verdict.DefaultMinBodySize,
		"template_tolerance":   verdict.DefaultTemplateTolerance,
		"similarity_threshold": verdict.DefaultSimilarityThreshold,
	}),
	conf.MergeDefaults("execution", conf.DefaultConfig{
		"max_concurrent":  execution.DefaultMaxConcurrent,
		"acquire_timeout": execution.DefaultAcquireTimeout,
	}),
)
