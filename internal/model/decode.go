package model

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
)

// UnmarshalYAML decodes a command mapping, rejecting unknown fields.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return newCommandError("command at line %d is not a mapping", node.Line)
	}

	var (
		run, output       *string
		awaits, externals []Resource
		httpOK            *AwaitHTTPOK
		consoleOK         bool
	)
	*c = Command{}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "run":
			var s string
			if err := val.Decode(&s); err != nil {
				return newCommandError("field 'run' at line %d: %v", val.Line, err)
			}
			run = &s
		case "output":
			var s string
			if err := val.Decode(&s); err != nil {
				return newCommandError("field 'output' at line %d: %v", val.Line, err)
			}
			output = &s
		case "apply":
			var s string
			if err := val.Decode(&s); err != nil {
				return newCommandError("field 'apply' at line %d: %v", val.Line, err)
			}
			tag := ApplyTag(s)
			if tag != ApplyReadme && tag != ApplyTest {
				return newCommandError("field 'apply' has an illegal value: %s", s)
			}
			c.Apply = tag
		case "await", "await_resource":
			rs, err := decodeResources(val)
			if err != nil {
				return newCommandError("field '%s': %v", key.Value, err)
			}
			awaits = append(awaits, rs...)
		case "await_external_ip":
			rs, err := decodeResources(val)
			if err != nil {
				return newCommandError("field 'await_external_ip': %v", err)
			}
			externals = append(externals, rs...)
		case "await_http_ok":
			var pair []string
			if err := val.Decode(&pair); err != nil || len(pair) != 2 {
				return newCommandError("field 'await_http_ok' at line %d must be [service, url-template]", val.Line)
			}
			svc, err := ParseResource(pair[0])
			if err != nil {
				return newCommandError("field 'await_http_ok': %v", err)
			}
			httpOK = &AwaitHTTPOK{Service: svc, URLTemplate: pair[1]}
		case "await_console_ok":
			consoleOK = true
		default:
			return newCommandError("unknown field '%s' in command at line %d", key.Value, key.Line)
		}
	}

	if output != nil && run == nil {
		return newCommandError("command at line %d has 'output' but no 'run'", node.Line)
	}

	if run != nil {
		r := Run{Script: *run}
		if output != nil {
			r.Output = *output
			r.HasOutput = true
		}
		c.Actions = append(c.Actions, r)
	}
	if len(awaits) > 0 {
		c.Actions = append(c.Actions, AwaitResource{Resources: awaits})
	}
	if len(externals) > 0 {
		c.Actions = append(c.Actions, AwaitExternalIP{Services: externals})
	}
	if httpOK != nil {
		c.Actions = append(c.Actions, *httpOK)
	}
	if consoleOK {
		c.Actions = append(c.Actions, AwaitConsoleOK{})
	}
	return nil
}

// decodeResources accepts a single "group/name" or a list of them.
func decodeResources(node *yaml.Node) ([]Resource, error) {
	var refs []string
	switch node.Kind {
	case yaml.ScalarNode:
		refs = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&refs); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("line %d: expected a resource or a list of resources", node.Line)
	}

	out := make([]Resource, 0, len(refs))
	for _, ref := range refs {
		r, err := ParseResource(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type rawStep struct {
	Name      string    `yaml:"name"`
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Numbered  *bool     `yaml:"numbered"`
	Preamble  string    `yaml:"preamble"`
	Postamble string    `yaml:"postamble"`
	Standard  string    `yaml:"standard"`
	Commands  yaml.Node `yaml:"commands"`
}

// UnmarshalYAML decodes a step, keeping the order of its commands mapping.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var raw rawStep
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*s = Step{
		Name:      raw.Name,
		Title:     raw.Title,
		Numbered:  raw.Numbered,
		Preamble:  raw.Preamble,
		Postamble: raw.Postamble,
		Standard:  raw.Standard,
	}
	if s.Name == "" {
		s.Name = raw.ID
	}

	if raw.Commands.Kind == 0 {
		return nil
	}
	s.Commands = orderedmap.New[string, []Command]()
	if raw.Commands.Tag == "!!null" {
		return nil
	}
	if raw.Commands.Kind != yaml.MappingNode {
		return withStep(newCommandError("'commands' at line %d is not a mapping", raw.Commands.Line), s)
	}

	content := raw.Commands.Content
	for i := 0; i+1 < len(content); i += 2 {
		site := content[i].Value
		if _, dup := s.Commands.Get(site); dup {
			return withStep(newCommandError("duplicate site '%s' in commands", site), s)
		}
		var cmds []Command
		if err := content[i+1].Decode(&cmds); err != nil {
			return withStep(err, s)
		}
		s.Commands.Set(site, cmds)
	}
	return nil
}

func withStep(err error, s *Step) error {
	var re *skerrors.RunError
	if errors.As(err, &re) && re.Step == "" {
		re.Step = s.Name
		if re.Step == "" {
			re.Step = s.Title
		}
	}
	return err
}

// modelFields drops Model's methods so the inline decode does not recurse.
type modelFields Model

type rawModel struct {
	modelFields `yaml:",inline"`

	Sites         yaml.Node `yaml:"sites"`
	Steps         []*Step   `yaml:"steps"`
	Prerequisites *string   `yaml:"prerequisites"`
	NextSteps     *string   `yaml:"next_steps"`
}

// UnmarshalYAML decodes the model, keeping site declaration order.
func (m *Model) UnmarshalYAML(node *yaml.Node) error {
	var raw rawModel
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*m = Model(raw.modelFields)
	m.Steps = raw.Steps
	m.Prerequisites = StandardPrerequisites
	if raw.Prerequisites != nil {
		m.Prerequisites = *raw.Prerequisites
	}
	m.NextSteps = StandardNextSteps
	if raw.NextSteps != nil {
		m.NextSteps = *raw.NextSteps
	}

	for i, s := range m.Steps {
		if s == nil {
			return skerrors.Validationf("step %d is empty", i+1)
		}
		s.Number = i + 1
	}

	if raw.Sites.Kind == 0 || raw.Sites.Tag == "!!null" {
		return nil
	}
	if raw.Sites.Kind != yaml.MappingNode {
		return skerrors.Validationf("'sites' at line %d is not a mapping", raw.Sites.Line)
	}

	m.Sites = orderedmap.New[string, *Site]()
	content := raw.Sites.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		if _, dup := m.Sites.Get(name); dup {
			return skerrors.Validationf("duplicate site '%s'", name)
		}
		site := &Site{}
		if err := content[i+1].Decode(site); err != nil {
			return fmt.Errorf("decoding site '%s': %w", name, err)
		}
		site.Name = name
		if site.Env == nil {
			site.Env = map[string]string{}
		}
		m.Sites.Set(name, site)
	}
	return nil
}
