package engine

import (
	"github.com/google/uuid"

	"github.com/stevehiehn/skewer/internal/config"
)

// RunContext holds state for one execution of a model.
type RunContext struct {
	RunID      string
	WorkDir    string
	Debug      bool
	Demo       bool
	DemoNoWait bool
}

// NewRunContext creates a new execution context from the configuration.
func NewRunContext(cfg *config.Config) *RunContext {
	return &RunContext{
		RunID:      uuid.New().String(),
		WorkDir:    cfg.WorkDir,
		Debug:      cfg.Debug,
		Demo:       cfg.Demo,
		DemoNoWait: cfg.DemoNoWait,
	}
}
