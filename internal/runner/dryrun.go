package runner

import (
	"context"
	"fmt"
	"io"
)

// DryRun prints commands instead of running them. Every command succeeds
// with empty output.
type DryRun struct {
	Out io.Writer
}

func (d DryRun) Run(ctx context.Context, command string, opts Options) (*Result, error) {
	fmt.Fprintf(d.Out, "Would run: %s\n", command)
	return &Result{}, nil
}
