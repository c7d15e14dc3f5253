package model

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stevehiehn/skewer/internal/log"
)

// LoadFile reads, decodes and resolves an example file.
func LoadFile(ctx context.Context, path string, kubeconfigs []string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skewer file: %w", err)
	}
	m, err := Load(ctx, data, kubeconfigs)
	if err != nil {
		return nil, err
	}
	m.File = path
	return m, nil
}

// Load decodes example YAML, applies kubeconfigs to the Kubernetes sites and
// resolves standard steps against the bundled library.
func Load(ctx context.Context, data []byte, kubeconfigs []string) (*Model, error) {
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}

	l := log.FromContext(ctx)
	ApplyKubeconfigs(m, kubeconfigs, l)
	if err := ApplyStandardSteps(m, Standard(), l); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode parses example YAML without resolving anything.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &m, nil
}
