package model

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
)

// WildcardSlot keys a template command list that applies to every site.
const WildcardSlot = "*"

var StandardPrerequisites = strings.TrimSpace(`
* The ` + "`kubectl`" + ` command-line tool, version 1.15 or later
  ([installation guide][install-kubectl])

* Access to at least one Kubernetes cluster, from [any provider you
  choose][kube-providers]

[install-kubectl]: https://kubernetes.io/docs/tasks/tools/install-kubectl/
[kube-providers]: https://skupper.io/start/kubernetes.html
`)

var StandardNextSteps = strings.TrimSpace(`
Check out the other [examples][examples] on the Skupper website.
`)

//go:embed standardsteps.yaml
var standardStepsYAML []byte

// Library maps a standard step name to its partial step definition.
// Templates are read-only; resolution copies fields out of them.
type Library map[string]*Step

// ParseLibrary decodes a standard-step document.
func ParseLibrary(data []byte) (Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing standard steps: %w", err)
	}
	return lib, nil
}

var (
	standardOnce sync.Once
	standardLib  Library
)

// Standard returns the bundled library, parsed on first use.
func Standard() Library {
	standardOnce.Do(func() {
		lib, err := ParseLibrary(standardStepsYAML)
		if err != nil {
			panic(err)
		}
		standardLib = lib
	})
	return standardLib
}

// ResolveStep merges the step's standard template into a copy of the step.
// Fields set on the step win. When the step has no commands mapping of its
// own, one is built from the template: each site takes the list keyed by its
// position, else the wildcard list, else it is left out.
func ResolveStep(step *Step, lib Library, sites []*Site) (*Step, error) {
	resolved := *step
	if step.Standard == "" {
		return &resolved, nil
	}

	tmpl, ok := lib[step.Standard]
	if !ok {
		return nil, &skerrors.RunError{
			Type:    skerrors.ValidationError,
			Step:    step.String(),
			Message: fmt.Sprintf("unknown standard step '%s'", step.Standard),
		}
	}

	if resolved.Name == "" {
		resolved.Name = tmpl.Name
	}
	if resolved.Title == "" {
		resolved.Title = tmpl.Title
	}
	if resolved.Numbered == nil && tmpl.Numbered != nil {
		numbered := *tmpl.Numbered
		resolved.Numbered = &numbered
	}
	if resolved.Preamble == "" {
		resolved.Preamble = tmpl.Preamble
	}
	if resolved.Postamble == "" {
		resolved.Postamble = tmpl.Postamble
	}

	if step.Commands == nil && tmpl.Commands != nil {
		resolved.Commands = orderedmap.New[string, []Command]()
		for i, site := range sites {
			cmds, ok := tmpl.Commands.Get(strconv.Itoa(i))
			if !ok {
				cmds, ok = tmpl.Commands.Get(WildcardSlot)
			}
			if !ok {
				continue
			}
			resolved.Commands.Set(site.Name, ResolveCommands(cmds, site))
		}
	}

	return &resolved, nil
}

// ApplyStandardSteps replaces every templated step of m with its resolution.
func ApplyStandardSteps(m *Model, lib Library, l *slog.Logger) error {
	l.Info("applying standard steps")

	sites := m.SiteList()
	for i, step := range m.Steps {
		resolved, err := ResolveStep(step, lib, sites)
		if err != nil {
			return err
		}
		m.Steps[i] = resolved
	}
	return nil
}

// ApplyKubeconfigs assigns kubeconfigs to the Kubernetes sites in order.
func ApplyKubeconfigs(m *Model, kubeconfigs []string, l *slog.Logger) {
	var kube []*Site
	for _, s := range m.SiteList() {
		if s.IsKubernetes() {
			kube = append(kube, s)
		}
	}

	applied := 0
	for i, s := range kube {
		if i >= len(kubeconfigs) {
			break
		}
		s.Env["KUBECONFIG"] = kubeconfigs[i]
		applied++
	}

	l.Info("applied kubeconfigs", "applied", applied, "sites", len(kube))
}
