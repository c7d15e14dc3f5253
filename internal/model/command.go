package model

import (
	"fmt"
	"strings"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/template"
)

// ApplyTag restricts where a command applies.
type ApplyTag string

const (
	ApplyAlways ApplyTag = ""
	// ApplyReadme commands appear in the README and are never executed.
	ApplyReadme ApplyTag = "readme"
	// ApplyTest commands are executed and never rendered.
	ApplyTest ApplyTag = "test"
)

// Kind is the resource kind of an awaited reference.
type Kind int

const (
	KindOther Kind = iota
	KindDeployment
	KindService
)

var kindsByGroup = map[string]Kind{
	"deployment": KindDeployment,
	"service":    KindService,
}

// Resource is a "group/name" reference to a cluster resource.
type Resource struct {
	Kind  Kind
	Group string
	Name  string
}

// ParseResource parses "group/name".
func ParseResource(s string) (Resource, error) {
	group, name, ok := strings.Cut(s, "/")
	if !ok || group == "" || name == "" {
		return Resource{}, fmt.Errorf("resource %q is not of the form group/name", s)
	}
	return Resource{Kind: kindsByGroup[group], Group: group, Name: name}, nil
}

// MustParseResource is ParseResource for constant references.
func MustParseResource(s string) Resource {
	r, err := ParseResource(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Resource) String() string {
	return r.Group + "/" + r.Name
}

// Action is one part of a command. The set of implementations is closed.
type Action interface {
	action()
}

// Run is a shell invocation with an optional documented sample output.
// HasOutput is set when the output field was given, even if empty.
type Run struct {
	Script    string
	Output    string
	HasOutput bool
}

// AwaitResource blocks until each resource exists.
type AwaitResource struct {
	Resources []Resource
}

// AwaitExternalIP blocks until each service has an external address.
type AwaitExternalIP struct {
	Services []Resource
}

// AwaitHTTPOK blocks until a GET on the service's address succeeds.
type AwaitHTTPOK struct {
	Service     Resource
	URLTemplate string
}

// AwaitConsoleOK blocks until the Skupper console answers.
type AwaitConsoleOK struct{}

func (Run) action()             {}
func (AwaitResource) action()   {}
func (AwaitExternalIP) action() {}
func (AwaitHTTPOK) action()     {}
func (AwaitConsoleOK) action()  {}

// Command is a set of actions performed in a fixed order: run, await,
// await_external_ip, await_http_ok, await_console_ok.
type Command struct {
	Apply   ApplyTag
	Actions []Action
}

// Run returns the command's shell invocation, if any.
func (c Command) Run() (Run, bool) {
	for _, a := range c.Actions {
		if r, ok := a.(Run); ok {
			return r, true
		}
	}
	return Run{}, false
}

// Executes reports whether the command runs during execution.
func (c Command) Executes() bool {
	return c.Apply != ApplyReadme
}

// Documented reports whether the command is rendered in the README.
func (c Command) Documented() bool {
	return c.Apply != ApplyTest
}

// Resolve returns a copy with placeholders in run and output substituted.
func (c Command) Resolve(ctx *template.Context) Command {
	out := Command{Apply: c.Apply, Actions: make([]Action, len(c.Actions))}
	for i, a := range c.Actions {
		if r, ok := a.(Run); ok {
			a = Run{
				Script:    template.Resolve(r.Script, ctx),
				Output:    template.Resolve(r.Output, ctx),
				HasOutput: r.HasOutput,
			}
		}
		out.Actions[i] = a
	}
	return out
}

// ResolveCommands resolves every command of a list against a site.
func ResolveCommands(cmds []Command, site *Site) []Command {
	ctx := site.TemplateContext()
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Resolve(ctx)
	}
	return out
}

// NewRun is a convenience constructor for a plain run command.
func NewRun(script string) Command {
	return Command{Actions: []Action{Run{Script: script}}}
}

func newCommandError(format string, args ...any) *skerrors.RunError {
	return skerrors.Validationf(format, args...)
}
