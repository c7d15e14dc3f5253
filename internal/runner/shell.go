package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
)

// Options controls one command invocation.
type Options struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env entries ("KEY=value") are layered over the process environment.
	Env []string
	// Check turns a non-zero exit code into an error.
	Check bool
	// Stdout and Stderr, when set, receive output as it is produced.
	// Output is captured in the Result either way.
	Stdout io.Writer
	Stderr io.Writer
}

// Result holds the output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs shell commands.
type Executor interface {
	Run(ctx context.Context, command string, opts Options) (*Result, error)
}

// Shell executes commands via sh -c.
type Shell struct{}

// Run executes a command via sh -c and captures output.
func (Shell) Run(ctx context.Context, command string, opts Options) (*Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, opts.Stdout)
	cmd.Stderr = tee(&stderr, opts.Stderr)

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
	return result, CheckResult(command, result, opts)
}

// CheckResult returns a command failure if opts.Check is set and the
// command exited non-zero.
func CheckResult(command string, r *Result, opts Options) error {
	if !opts.Check || r.ExitCode == 0 {
		return nil
	}
	return skerrors.NewCommandError(command, r.ExitCode, r.Stderr)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// CheckProgram fails if name is not on PATH.
func CheckProgram(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return skerrors.NewPreconditionError("program '"+name+"' not found", "Install "+name+" and make sure it is on your PATH")
	}
	return nil
}
