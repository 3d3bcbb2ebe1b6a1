package app

import (
	"errors"
	"fmt"

	"github.com/vk/contentgrid/internal/output"
)

// Config holds all the necessary configuration for an App instance to run.
// Directory fields override the project file when set.
type Config struct {
	ProjectPath string // project .hcl file
	SourceRoot  string // used when no project file is given

	IntermediateDir string
	OutputDir       string
	Compression     string

	LogFormat   string
	LogLevel    string
	WorkerCount int

	Rebuild        bool
	Clean          bool
	ListComponents bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" && cfg.SourceRoot == "" && !cfg.ListComponents {
		return nil, errors.New("either a project file or a source root is required")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.Compression != "" {
		if _, err := output.ParseCompression(cfg.Compression); err != nil {
			return nil, err
		}
	}
	if _, ok := parseLevel(cfg.LogLevel); !ok && cfg.LogLevel != "" {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if cfg.Rebuild && cfg.Clean {
		return nil, errors.New("rebuild and clean cannot be combined")
	}
	return &cfg, nil
}
