// Package cluster manages the throwaway Minikube cluster used by
// run-minikube.
package cluster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/scope"
	"github.com/stevehiehn/skewer/internal/template"
)

// TunnelOutput is the artifact name of the tunnel's output.
const TunnelOutput = "minikube-tunnel-output"

// Stopper is a running background process.
type Stopper interface {
	Stop() error
}

// Starter launches a background process writing to out.
type Starter func(ctx context.Context, command string, opts runner.Options, out io.Writer) (Stopper, error)

// StartProcess is the Starter backed by runner.Start.
func StartProcess(ctx context.Context, command string, opts runner.Options, out io.Writer) (Stopper, error) {
	p, err := runner.Start(ctx, command, opts, out)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Minikube starts a profile with a load-balancer tunnel and deletes it again.
type Minikube struct {
	Profile string
	WorkDir string

	exec   runner.Executor
	start  Starter
	tunnel Stopper
}

// NewMinikube returns a cluster for profile. The profile is slugified, as
// minikube only accepts lower-case alphanumerics and hyphens.
func NewMinikube(exec runner.Executor, start Starter, profile, workDir string) *Minikube {
	return &Minikube{Profile: slug.Make(profile), WorkDir: workDir, exec: exec, start: start}
}

func (k *Minikube) command(args string) string {
	return fmt.Sprintf("minikube -p %s %s", k.Profile, args)
}

// Start brings the cluster up and runs the tunnel in the background.
func (k *Minikube) Start(ctx context.Context, sc *scope.Context, tunnelOut io.Writer) error {
	if _, err := k.exec.Run(ctx, k.command("start --auto-update-drivers false"), sc.Options(true)); err != nil {
		return err
	}

	tunnel, err := k.start(ctx, k.command("tunnel"), sc.Quiet(false), tunnelOut)
	if err != nil {
		return fmt.Errorf("starting minikube tunnel: %w", err)
	}
	k.tunnel = tunnel
	return nil
}

// UpdateContexts writes a kubeconfig for every kubernetes site, with "~"
// in its KUBECONFIG replaced by the work dir, and returns the paths in
// site order. The expanded path is written back to the site.
func (k *Minikube) UpdateContexts(ctx context.Context, stack *scope.Stack, m *model.Model) ([]string, error) {
	var kubeconfigs []string
	for _, site := range m.SiteList() {
		if !site.IsKubernetes() {
			continue
		}

		kubeconfig := template.ExpandWorkDir(site.Kubeconfig(), k.WorkDir)
		site.Env["KUBECONFIG"] = kubeconfig
		kubeconfigs = append(kubeconfigs, kubeconfig)

		if err := os.MkdirAll(filepath.Dir(kubeconfig), 0o755); err != nil {
			return nil, fmt.Errorf("creating kubeconfig dir: %w", err)
		}

		overlay := scope.Overlay{Label: site.Name, Env: map[string]string{"KUBECONFIG": kubeconfig}}
		err := stack.Within(overlay, func(sc *scope.Context) error {
			if _, err := k.exec.Run(ctx, k.command("update-context"), sc.Options(true)); err != nil {
				return err
			}
			if _, err := os.Stat(kubeconfig); err != nil {
				return &skerrors.RunError{
					Type:    skerrors.PreconditionFailed,
					Site:    site.Name,
					Message: fmt.Sprintf("kubeconfig %s was not written", kubeconfig),
					Cause:   err,
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return kubeconfigs, nil
}

// Stop stops the tunnel and deletes the profile. Failures are logged.
func (k *Minikube) Stop(ctx context.Context, sc *scope.Context) {
	if k.tunnel != nil {
		if err := k.tunnel.Stop(); err != nil {
			sc.Logger.Warn("cannot stop minikube tunnel", "error", err)
		}
		k.tunnel = nil
	}
	if _, err := k.exec.Run(ctx, k.command("delete"), sc.Options(false)); err != nil {
		sc.Logger.Warn("cannot delete minikube profile", "profile", k.Profile, "error", err)
	}
}
