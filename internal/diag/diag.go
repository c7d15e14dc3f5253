// Package diag prints the debug output collected after a failed run.
package diag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/scope"
)

var kubernetesCommands = []string{
	"kubectl get services",
	"kubectl get deployments",
	"kubectl get statefulsets",
	"kubectl get pods",
	"kubectl get events",
}

var skupperCommands = []string{
	"skupper version",
	"skupper status",
	"skupper link status",
	"skupper service status",
	"skupper network status",
	"skupper debug events",
}

var kubernetesLogs = []string{
	"kubectl logs deployment/skupper-router",
	"kubectl logs deployment/skupper-service-controller",
}

// ContainerAPI is the part of the Docker API used to inspect podman sites.
type ContainerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// Connector opens a container API client for a socket address.
type Connector func(host string) (ContainerAPI, error)

// DockerConnector connects through the Docker-compatible podman socket.
func DockerConnector(host string) (ContainerAPI, error) {
	cli, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// Dumper runs the diagnostic battery for every site.
type Dumper struct {
	exec    runner.Executor
	connect Connector
}

func New(exec runner.Executor, connect Connector) *Dumper {
	return &Dumper{exec: exec, connect: connect}
}

// Dump prints the debug output of every site. Every individual failure is
// logged and skipped, so Dump itself never fails.
func (d *Dumper) Dump(ctx context.Context, stack *scope.Stack, m *model.Model, workDir string) {
	root := stack.Current()
	root.Printf("TROUBLE!\n")
	root.Printf("-- Start of debug output\n")

	for _, site := range m.SiteList() {
		_ = stack.Within(scope.Overlay{Label: site.Name, Env: site.EnvIn(workDir)}, func(sc *scope.Context) error {
			sc.Printf("---- Debug output for site '%s'\n", site.Name)

			if site.IsKubernetes() {
				d.runAll(ctx, sc, kubernetesCommands)
			}
			d.runAll(ctx, sc, skupperCommands)
			if site.IsKubernetes() {
				d.runAll(ctx, sc, kubernetesLogs)
			} else if d.connect != nil {
				d.listContainers(ctx, sc)
			}
			return nil
		})
	}

	root.Printf("-- End of debug output\n")
}

func (d *Dumper) runAll(ctx context.Context, sc *scope.Context, commands []string) {
	for _, command := range commands {
		res, err := d.exec.Run(ctx, command, sc.Options(false))
		if err != nil {
			sc.Logger.Warn("debug command failed", "command", command, "error", err)
			continue
		}
		if res.ExitCode != 0 {
			sc.Logger.Debug("debug command exited non-zero", "command", command, "code", res.ExitCode)
		}
	}
}

func (d *Dumper) listContainers(ctx context.Context, sc *scope.Context) {
	host := PodmanHost(sc.Env)

	api, err := d.connect(host)
	if err != nil {
		sc.Logger.Warn("cannot connect to podman", "host", host, "error", err)
		return
	}
	defer api.Close()

	containers, err := api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		sc.Logger.Warn("cannot list containers", "host", host, "error", err)
		return
	}

	fmt.Fprintf(sc.Stdout, "Containers (%d):\n", len(containers))
	for _, c := range containers {
		name := c.ID
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		fmt.Fprintf(sc.Stdout, "  %s %s %s %s\n", name, c.Image, c.State, c.Status)
	}
}

// PodmanHost returns the podman API socket for a site: CONTAINER_HOST or
// DOCKER_HOST from the site env, else the rootless socket of the current
// user.
func PodmanHost(env map[string]string) string {
	for _, key := range []string{"CONTAINER_HOST", "DOCKER_HOST"} {
		if v := env[key]; v != "" {
			return v
		}
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return "unix://" + dir + "/podman/podman.sock"
	}
	return fmt.Sprintf("unix:///run/user/%d/podman/podman.sock", os.Getuid())
}
