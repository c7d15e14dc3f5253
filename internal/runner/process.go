package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Process is a background command started with Start.
type Process struct {
	cmd  *exec.Cmd
	done chan error
}

// Start launches command via sh -c without waiting for it. Output goes to
// out when non-nil.
func Start(ctx context.Context, command string, opts Options, out io.Writer) (*Process, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{cmd: cmd, done: make(chan error, 1)}
	go func() {
		p.done <- cmd.Wait()
	}()
	return p, nil
}

// Stop kills the process and waits for it to exit.
func (p *Process) Stop() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}
