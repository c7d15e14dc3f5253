package model

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/stevehiehn/skewer/internal/template"
)

// CleanupStepName identifies the step that always runs at the end of a run.
const CleanupStepName = "cleaning_up"

// Platform is the kind of infrastructure a site runs on.
type Platform string

const (
	Kubernetes Platform = "kubernetes"
	Podman     Platform = "podman"
)

// Model is the top-level example document.
type Model struct {
	File             string `yaml:"-" validate:"-"`
	Title            string `yaml:"title" validate:"required"`
	Subtitle         string `yaml:"subtitle"`
	GitHubActionsURL string `yaml:"github_actions_url" validate:"omitempty,url"`
	Overview         string `yaml:"overview"`
	Prerequisites    string `yaml:"-"`
	Summary          string `yaml:"summary"`
	NextSteps        string `yaml:"-"`

	// Sites keeps declaration order. Values are shared, so writes through a
	// looked-up site are visible to every later lookup.
	Sites *orderedmap.OrderedMap[string, *Site] `yaml:"-" validate:"-"`
	Steps []*Step                               `yaml:"-" validate:"-"`
}

// Site returns the site with the given name.
func (m *Model) Site(name string) (*Site, bool) {
	if m.Sites == nil {
		return nil, false
	}
	return m.Sites.Get(name)
}

// SiteList returns the sites in declaration order.
func (m *Model) SiteList() []*Site {
	if m.Sites == nil {
		return nil
	}
	sites := make([]*Site, 0, m.Sites.Len())
	for pair := m.Sites.Oldest(); pair != nil; pair = pair.Next() {
		sites = append(sites, pair.Value)
	}
	return sites
}

// CleanupStep returns the cleanup step if the model declares one.
func (m *Model) CleanupStep() *Step {
	for _, s := range m.Steps {
		if s.IsCleanup() {
			return s
		}
	}
	return nil
}

func (m *Model) String() string {
	return fmt.Sprintf("model '%s'", m.File)
}

// Site is one independent execution context.
type Site struct {
	Name      string            `yaml:"-" validate:"-"`
	Platform  Platform          `yaml:"platform" validate:"required,oneof=kubernetes podman"`
	Namespace string            `yaml:"namespace" validate:"required_if=Platform kubernetes"`
	Env       map[string]string `yaml:"env"`
	Title     string            `yaml:"title"`
}

func (s *Site) String() string {
	return fmt.Sprintf("site '%s'", s.Name)
}

// IsKubernetes reports whether the site runs on Kubernetes.
func (s *Site) IsKubernetes() bool {
	return s.Platform == Kubernetes
}

// DisplayTitle is the title used in documentation.
func (s *Site) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return capitalize(s.Name)
}

// Kubeconfig returns the site's KUBECONFIG override.
func (s *Site) Kubeconfig() string {
	return s.Env["KUBECONFIG"]
}

// EnvIn returns the site env with "~" in each value replaced by workDir.
func (s *Site) EnvIn(workDir string) map[string]string {
	env := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		env[k] = template.ExpandWorkDir(v, workDir)
	}
	return env
}

// TemplateContext binds the placeholder resolver to this site.
func (s *Site) TemplateContext() *template.Context {
	return &template.Context{
		Kubernetes: s.IsKubernetes(),
		Kubeconfig: s.Kubeconfig(),
		Namespace:  s.Namespace,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// Step is one unit of work with per-site command lists.
type Step struct {
	Name      string `validate:"-"`
	Title     string `validate:"required"`
	Numbered  *bool  `validate:"-"`
	Preamble  string `validate:"-"`
	Postamble string `validate:"-"`
	Standard  string `validate:"-"`

	// Commands is nil when the step declares none.
	Commands *orderedmap.OrderedMap[string, []Command] `validate:"-"`

	// Number is the 1-based position in the model.
	Number int `validate:"-"`
}

func (s *Step) String() string {
	return fmt.Sprintf("step %d '%s'", s.Number, s.Title)
}

// IsNumbered defaults to true.
func (s *Step) IsNumbered() bool {
	return s.Numbered == nil || *s.Numbered
}

func (s *Step) IsCleanup() bool {
	return s.Name == CleanupStepName
}

// Heading is "Step N: Title" for numbered steps, else the title alone.
func (s *Step) Heading() string {
	if s.IsNumbered() {
		return fmt.Sprintf("Step %d: %s", s.Number, s.Title)
	}
	return s.Title
}

// HasCommands reports whether there is anything to run or document.
func (s *Step) HasCommands() bool {
	return s.Commands != nil && s.Commands.Len() > 0
}

// SiteCommands is one entry of a step's commands mapping.
type SiteCommands struct {
	Site     string
	Commands []Command
}

// CommandList returns the commands mapping in insertion order.
func (s *Step) CommandList() []SiteCommands {
	if s.Commands == nil {
		return nil
	}
	out := make([]SiteCommands, 0, s.Commands.Len())
	for pair := s.Commands.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, SiteCommands{Site: pair.Key, Commands: pair.Value})
	}
	return out
}
