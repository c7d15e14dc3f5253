// Package runnertest provides a scripted runner.Executor for tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"github.com/stevehiehn/skewer/internal/runner"
)

// Response is the scripted outcome of one command.
type Response struct {
	Stdout   string
	ExitCode int
}

// Call records one invocation.
type Call struct {
	Command string
	Options runner.Options
}

// Executor records every command and answers from Handler. Without a
// handler every command succeeds with empty output.
type Executor struct {
	mu      sync.Mutex
	calls   []Call
	Handler func(command string, opts runner.Options) Response
}

func (e *Executor) Run(ctx context.Context, command string, opts runner.Options) (*runner.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Command: command, Options: opts})
	handler := e.Handler
	e.mu.Unlock()

	var resp Response
	if handler != nil {
		resp = handler(command, opts)
	}
	r := &runner.Result{Stdout: resp.Stdout, ExitCode: resp.ExitCode}
	if opts.Stdout != nil && resp.Stdout != "" {
		_, _ = opts.Stdout.Write([]byte(resp.Stdout))
	}
	return r, runner.CheckResult(command, r, opts)
}

// Calls returns a copy of the recorded invocations.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Commands returns the recorded command strings.
func (e *Executor) Commands() []string {
	var out []string
	for _, c := range e.Calls() {
		out = append(out, c.Command)
	}
	return out
}

// Count returns how many recorded commands start with prefix.
func (e *Executor) Count(prefix string) int {
	n := 0
	for _, c := range e.Commands() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
