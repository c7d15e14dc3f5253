// Package scope keeps the active execution context as an explicit stack.
// Entering a context returns a release function that restores the previous
// one; Within guarantees the release on every exit path.
package scope

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/stevehiehn/skewer/internal/log"
	"github.com/stevehiehn/skewer/internal/runner"
)

// Context is where commands run, which environment they see and how their
// output is labelled.
type Context struct {
	Label  string
	Dir    string
	Env    map[string]string
	Logger *slog.Logger

	// Stdout is labelled with Label; out is the unlabelled base writer.
	Stdout io.Writer
	out    io.Writer
}

// Root returns a context writing to out with no overlays.
func Root(logger *slog.Logger, out io.Writer) *Context {
	if out == nil {
		out = os.Stdout
	}
	return &Context{Env: map[string]string{}, Logger: logger, Stdout: out, out: out}
}

// Options returns runner options for a command whose output is streamed.
func (c *Context) Options(check bool) runner.Options {
	return runner.Options{
		Dir:    c.Dir,
		Env:    c.EnvList(),
		Check:  check,
		Stdout: c.Stdout,
		Stderr: c.Stdout,
	}
}

// Quiet returns runner options for a command whose output is only captured.
func (c *Context) Quiet(check bool) runner.Options {
	return runner.Options{
		Dir:   c.Dir,
		Env:   c.EnvList(),
		Check: check,
	}
}

// EnvList renders the environment overlay as sorted KEY=value entries.
func (c *Context) EnvList() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	return out
}

// Printf writes unlabelled text to the base output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Overlay is what a pushed context changes relative to its parent.
type Overlay struct {
	Label string
	Dir   string
	Env   map[string]string
}

// Stack holds the nested contexts. Only one context is active at a time.
type Stack struct {
	frames []*Context
}

func NewStack(root *Context) *Stack {
	return &Stack{frames: []*Context{root}}
}

// Current returns the active context.
func (s *Stack) Current() *Context {
	return s.frames[len(s.frames)-1]
}

// Depth is the number of contexts, the root included.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Push activates a new context derived from the current one. The returned
// function restores the stack to its depth before the push, popping any
// context entered since; calling it again is a no-op.
func (s *Stack) Push(o Overlay) (*Context, func()) {
	parent := s.Current()
	depth := len(s.frames)

	child := &Context{
		Label:  parent.Label,
		Dir:    parent.Dir,
		Env:    make(map[string]string, len(parent.Env)+len(o.Env)),
		Logger: parent.Logger,
		Stdout: parent.Stdout,
		out:    parent.out,
	}
	for k, v := range parent.Env {
		child.Env[k] = v
	}
	for k, v := range o.Env {
		child.Env[k] = v
	}
	if o.Dir != "" {
		child.Dir = o.Dir
	}
	if o.Label != "" {
		child.Label = o.Label
		child.Logger = log.SubLogger(parent.Logger, o.Label)
		child.Stdout = runner.NewLabelWriter(o.Label, parent.out)
	}

	s.frames = append(s.frames, child)

	released := false
	return child, func() {
		if released {
			return
		}
		released = true
		if len(s.frames) > depth {
			s.frames = s.frames[:depth]
		}
	}
}

// Within runs fn inside a pushed context and always pops it, even when fn
// fails or panics.
func (s *Stack) Within(o Overlay, fn func(*Context) error) error {
	ctx, release := s.Push(o)
	defer release()
	return fn(ctx)
}
