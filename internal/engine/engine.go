package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/stevehiehn/skewer/internal/artifact"
	"github.com/stevehiehn/skewer/internal/await"
	"github.com/stevehiehn/skewer/internal/diag"
	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/scope"
	"github.com/stevehiehn/skewer/internal/template"
)

// Mode controls execution behavior.
type Mode int

const (
	ModeRun Mode = iota
	ModeDryRun
)

var frontendService = model.MustParseResource("service/frontend")

// Options wires an Engine to its collaborators.
type Options struct {
	Mode     Mode
	Executor runner.Executor
	Poller   *await.Poller
	// Dumper is used for the debug output of a failed run; nil disables it.
	Dumper *diag.Dumper
	// Store receives result.json; nil disables it.
	Store  *artifact.Store
	Logger *slog.Logger
	Out    io.Writer
	In     io.Reader
}

// Engine executes the steps of a resolved model.
type Engine struct {
	mode   Mode
	exec   runner.Executor
	poller *await.Poller
	dumper *diag.Dumper
	store  *artifact.Store
	stack  *scope.Stack
	in     io.Reader
}

func New(opts Options) *Engine {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mode:   opts.Mode,
		exec:   opts.Executor,
		poller: opts.Poller,
		dumper: opts.Dumper,
		store:  opts.Store,
		stack:  scope.NewStack(scope.Root(logger, out)),
		in:     in,
	}
}

// Execute runs every step except the cleanup step in order, stopping at the
// first error. The cleanup step then runs whatever happened, with its
// failures logged and dropped. The returned error is the one that stopped
// the run.
func (e *Engine) Execute(ctx context.Context, m *model.Model, rc *RunContext) (*Result, error) {
	result := &Result{RunID: rc.RunID, Model: m.File, Success: true}
	if e.store != nil {
		result.Artifacts = []string{e.store.BaseDir}
	}

	if e.mode == ModeRun {
		if err := os.MkdirAll(rc.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating work dir: %w", err)
		}
	}

	runErr := e.runSteps(ctx, m, rc, result)
	if runErr == nil && rc.Demo && e.mode == ModeRun {
		runErr = e.pauseForDemo(ctx, m, rc)
	}

	if runErr != nil {
		result.Success = false
		var re *skerrors.RunError
		if errors.As(runErr, &re) {
			result.Errors = append(result.Errors, *re)
		} else {
			result.Errors = append(result.Errors, skerrors.RunError{Type: skerrors.CommandFailed, Message: runErr.Error()})
		}
		if rc.Debug && e.dumper != nil && e.mode == ModeRun {
			e.dumper.Dump(ctx, e.stack, m, rc.WorkDir)
		}
	}

	if cleanup := m.CleanupStep(); cleanup != nil {
		result.Steps = append(result.Steps, e.runCleanup(ctx, m, cleanup, rc))
	}

	if e.store != nil {
		if err := e.store.WriteResult(result); err != nil {
			e.stack.Current().Logger.Warn("cannot write run result", "error", err)
		}
	}

	return result, runErr
}

func (e *Engine) runSteps(ctx context.Context, m *model.Model, rc *RunContext, result *Result) error {
	var runErr error
	for _, step := range m.Steps {
		if step.IsCleanup() {
			continue
		}

		sr := StepResult{Name: step.Name, Title: step.Heading(), Sites: stepSites(step)}
		if runErr != nil {
			sr.Status = StatusSkipped
			result.Steps = append(result.Steps, sr)
			continue
		}

		start := time.Now()
		err := e.runStep(ctx, m, step, rc, true)
		sr.Duration = time.Since(start).Round(time.Millisecond).String()

		switch {
		case err != nil:
			sr.Status = StatusFailed
			sr.Error = err.Error()
			result.FailedStep = step.Heading()
			runErr = err
		case e.mode == ModeDryRun:
			sr.Status = StatusDryRun
		default:
			sr.Status = StatusSuccess
		}
		result.Steps = append(result.Steps, sr)
	}
	return runErr
}

func (e *Engine) runCleanup(ctx context.Context, m *model.Model, step *model.Step, rc *RunContext) StepResult {
	start := time.Now()
	if err := e.runStep(ctx, m, step, rc, false); err != nil {
		e.stack.Current().Logger.Warn("cleanup failed", "error", err)
	}
	return StepResult{
		Name:     step.Name,
		Title:    step.Heading(),
		Status:   StatusCleanup,
		Sites:    stepSites(step),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
}

// runStep executes the step's commands site by site. With check unset,
// failures are logged and the remaining commands still run.
func (e *Engine) runStep(ctx context.Context, m *model.Model, step *model.Step, rc *RunContext, check bool) error {
	e.stack.Current().Logger.Info("running step", "step", step.Heading())

	for _, sc := range step.CommandList() {
		site, ok := m.Site(sc.Site)
		if !ok {
			return &skerrors.RunError{Type: skerrors.ValidationError, Step: step.Heading(), Message: fmt.Sprintf("unknown site '%s'", sc.Site)}
		}

		err := e.stack.Within(siteOverlay(site, rc.WorkDir), func(c *scope.Context) error {
			if site.IsKubernetes() {
				if _, err := e.exec.Run(ctx, "kubectl config set-context --current --namespace "+site.Namespace, c.Options(check)); err != nil {
					if check {
						return err
					}
					c.Logger.Warn("cannot set namespace", "error", err)
				}
			}

			for _, cmd := range sc.Commands {
				if !cmd.Executes() {
					continue
				}
				if err := e.runCommand(ctx, c, cmd, rc, check); err != nil {
					if check {
						return err
					}
					c.Logger.Warn("command failed", "error", err)
				}
			}
			return nil
		})
		if err != nil {
			return annotate(err, step, site)
		}
	}
	return nil
}

func (e *Engine) runCommand(ctx context.Context, sc *scope.Context, cmd model.Command, rc *RunContext, check bool) error {
	for _, a := range cmd.Actions {
		var err error
		switch a := a.(type) {
		case model.Run:
			script := template.ExpandWorkDir(a.Script, rc.WorkDir)
			_, err = e.exec.Run(ctx, script, sc.Options(check))
		case model.AwaitResource:
			for _, r := range a.Resources {
				if err = e.wait(sc, r.String()+" to become available", func() error {
					return e.poller.AwaitResource(ctx, sc, r)
				}); err != nil {
					break
				}
			}
		case model.AwaitExternalIP:
			for _, svc := range a.Services {
				if err = e.wait(sc, "external IP from "+svc.String(), func() error {
					_, err := e.poller.AwaitExternalIP(ctx, sc, svc)
					return err
				}); err != nil {
					break
				}
			}
		case model.AwaitHTTPOK:
			err = e.wait(sc, "HTTP OK from "+a.Service.String(), func() error {
				return e.poller.AwaitHTTPOK(ctx, sc, a.Service, a.URLTemplate, "", "")
			})
		case model.AwaitConsoleOK:
			err = e.wait(sc, "the console", func() error {
				return e.poller.AwaitConsoleOK(ctx, sc)
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// wait runs a readiness wait, or only reports it in dry-run mode.
func (e *Engine) wait(sc *scope.Context, what string, fn func() error) error {
	if e.mode == ModeDryRun {
		fmt.Fprintf(sc.Stdout, "Would wait for %s\n", what)
		return nil
	}
	return fn()
}

func (e *Engine) pauseForDemo(ctx context.Context, m *model.Model, rc *RunContext) error {
	root := e.stack.Current()
	root.Logger.Info("pausing for demo time")

	sites := m.SiteList()
	if len(sites) == 0 || !sites[0].IsKubernetes() {
		root.Logger.Warn("demo mode needs a kubernetes site first, skipping the pause")
		return nil
	}
	first := sites[0]

	var consoleURL, password, frontendURL string
	err := e.stack.Within(siteOverlay(first, rc.WorkDir), func(sc *scope.Context) error {
		ip, err := e.poller.AwaitExternalIP(ctx, sc, await.ConsoleService)
		if err != nil {
			return err
		}
		consoleURL = await.FormatURL(await.ConsoleURL, ip)

		if err := e.poller.AwaitResource(ctx, sc, await.ConsoleSecret); err != nil {
			return err
		}
		if password, err = e.poller.ConsolePassword(ctx, sc); err != nil {
			return err
		}

		res, err := e.exec.Run(ctx, "kubectl get "+frontendService.String(), sc.Quiet(false))
		if err != nil || res.ExitCode != 0 {
			return nil
		}
		res, err = e.exec.Run(ctx, fmt.Sprintf("kubectl get %s -o jsonpath='{.spec.type}'", frontendService), sc.Quiet(true))
		if err != nil {
			return err
		}
		if strings.TrimSpace(res.Stdout) == "LoadBalancer" {
			ip, err := e.poller.AwaitExternalIP(ctx, sc, frontendService)
			if err != nil {
				return err
			}
			frontendURL = fmt.Sprintf("http://%s:8080/", ip)
		}
		return nil
	})
	if err != nil {
		return annotate(err, nil, first)
	}

	root.Printf("\nDemo time!\n\nSites:\n")
	for _, site := range sites {
		if site.IsKubernetes() {
			root.Printf("  %s: export KUBECONFIG=%s\n", site.Name, template.ExpandWorkDir(site.Kubeconfig(), rc.WorkDir))
		}
	}
	if frontendURL != "" {
		root.Printf("\nFrontend URL:     %s\n", frontendURL)
	}
	root.Printf("\nConsole URL:      %s\n", consoleURL)
	root.Printf("Console user:     %s\n", await.ConsoleUser)
	root.Printf("Console password: %s\n\n", password)

	if rc.DemoNoWait {
		return nil
	}

	scanner := bufio.NewScanner(e.in)
	for {
		root.Printf("Are you done (yes)? ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if scanner.Text() == "yes" {
			return nil
		}
	}
}

// siteOverlay is the execution context of a site. "~" in env values is the
// work dir, as in run commands.
func siteOverlay(site *model.Site, workDir string) scope.Overlay {
	return scope.Overlay{Label: site.Name, Env: site.EnvIn(workDir)}
}

func stepSites(step *model.Step) []string {
	var sites []string
	for _, sc := range step.CommandList() {
		sites = append(sites, sc.Site)
	}
	return sites
}

// annotate names the step and site on a RunError that does not name them.
func annotate(err error, step *model.Step, site *model.Site) error {
	var re *skerrors.RunError
	if !errors.As(err, &re) {
		re = &skerrors.RunError{Type: skerrors.CommandFailed, Message: "command failed", Cause: err}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			re.Message = "interrupted"
		}
	}
	if re.Step == "" && step != nil {
		re.Step = step.Heading()
	}
	if re.Site == "" && site != nil {
		re.Site = site.Name
	}
	return re
}
