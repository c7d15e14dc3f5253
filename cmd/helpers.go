package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/artifact"
	"github.com/stevehiehn/skewer/internal/await"
	"github.com/stevehiehn/skewer/internal/config"
	"github.com/stevehiehn/skewer/internal/diag"
	"github.com/stevehiehn/skewer/internal/engine"
	"github.com/stevehiehn/skewer/internal/log"
	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/probe"
	"github.com/stevehiehn/skewer/internal/runner"
)

// requiredPrograms must be on PATH before steps are run.
var requiredPrograms = []string{"base64", "curl", "kubectl", "skupper"}

func checkEnvironment(programs ...string) error {
	for _, p := range programs {
		if err := runner.CheckProgram(p); err != nil {
			return err
		}
	}
	return nil
}

// loadModel loads, resolves and checks a skewer file.
func loadModel(cmd *cobra.Command, path string, kubeconfigs []string) (*model.Model, error) {
	m, err := model.LoadFile(cmd.Context(), path, kubeconfigs)
	if err != nil {
		return nil, err
	}
	if err := model.Check(m); err != nil {
		return nil, err
	}
	return m, nil
}

// loadConfig reads the environment; a set --debug flag wins over SKEWER_DEBUG.
func loadConfig(cmd *cobra.Command, debug bool) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// execute runs m and reports the result. The run's error is returned so
// the process exits non-zero after cleanup.
func execute(cmd *cobra.Command, m *model.Model, cfg *config.Config, rc *engine.RunContext, mode engine.Mode, store *artifact.Store) error {
	out := cmd.OutOrStdout()

	var exec runner.Executor = runner.Shell{}
	if mode == engine.ModeDryRun {
		exec = runner.DryRun{Out: out}
	}

	poller := await.New(exec, probe.NewHTTP())
	poller.Timeout = cfg.AwaitTimeout
	poller.Interval = cfg.PollInterval

	e := engine.New(engine.Options{
		Mode:     mode,
		Executor: exec,
		Poller:   poller,
		Dumper:   diag.New(exec, diag.DockerConnector),
		Store:    store,
		Logger:   log.FromContext(cmd.Context()),
		Out:      out,
		In:       cmd.InOrStdin(),
	})

	result, runErr := e.Execute(cmd.Context(), m, rc)
	if result == nil {
		return runErr
	}
	if err := report(out, m, result); err != nil {
		return err
	}
	return runErr
}

func report(w io.Writer, m *model.Model, result *engine.Result) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(result)
	}

	if result.Success {
		fmt.Fprintf(w, "Example %q completed successfully.\n", m.Title)
	} else {
		fmt.Fprintf(w, "Example %q failed at %q.\n", m.Title, result.FailedStep)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  Error: %s\n", e.Message)
			if e.Hint != "" {
				fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
			}
		}
	}
	fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
	return nil
}
