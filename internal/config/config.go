package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the environment toggles and tunables read by the runner.
type Config struct {
	Demo       bool `env:"SKEWER_DEMO, default=false"`
	DemoNoWait bool `env:"SKEWER_DEMO_NO_WAIT, default=false"`
	Debug      bool `env:"SKEWER_DEBUG, default=false"`

	// WorkDir replaces the "~" token in run commands and kubeconfig paths.
	WorkDir string `env:"SKEWER_WORK_DIR, default=/tmp/skewer"`

	AwaitTimeout    time.Duration `env:"SKEWER_AWAIT_TIMEOUT, default=240s"`
	PollInterval    time.Duration `env:"SKEWER_POLL_INTERVAL, default=5s"`
	MinikubeProfile string        `env:"SKEWER_MINIKUBE_PROFILE, default=skewer"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration through the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
