package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	InputPath string // .ifc file or a directory of them
	OutputDir string // local directory or s3://bucket/prefix; empty means next to the input

	Quiet     bool
	LogFormat string
	LogLevel  string

	WorkerCount      int
	ProfilePaths     []string
	PartitionTimeout time.Duration

	KeepRelationships      bool
	IncludeReferencedRoots bool

	ReportPath  string
	MetricsPath string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("InputPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WorkerCount must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.PartitionTimeout < 0 {
		return nil, fmt.Errorf("PartitionTimeout must not be negative, got %s", cfg.PartitionTimeout)
	}
	switch cfg.LogFormat {
	case "", "text", "json", "auto":
	default:
		return nil, fmt.Errorf("unknown LogFormat %q", cfg.LogFormat)
	}

	return &cfg, nil
}
