package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/artifact"
	"github.com/stevehiehn/skewer/internal/cluster"
	"github.com/stevehiehn/skewer/internal/engine"
	"github.com/stevehiehn/skewer/internal/log"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/scope"
)

var runMinikubeDebug bool

var runMinikubeCmd = &cobra.Command{
	Use:   "run-minikube <skewer.yaml>",
	Short: "Run the example steps on a throwaway Minikube cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkEnvironment(append(requiredPrograms, "minikube")...); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, runMinikubeDebug)
		if err != nil {
			return err
		}
		m, err := loadModel(cmd, args[0], nil)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext(cfg)
		store, err := artifact.New(rc.RunID, cfg.WorkDir)
		if err != nil {
			return err
		}
		tunnelOut, err := store.Create(cluster.TunnelOutput)
		if err != nil {
			return err
		}
		defer tunnelOut.Close()

		ctx := cmd.Context()
		stack := scope.NewStack(scope.Root(log.FromContext(ctx), cmd.OutOrStdout()))
		minikube := cluster.NewMinikube(runner.Shell{}, cluster.StartProcess, cfg.MinikubeProfile, cfg.WorkDir)

		if err := minikube.Start(ctx, stack.Current(), tunnelOut); err != nil {
			return err
		}
		defer minikube.Stop(context.WithoutCancel(ctx), stack.Current())

		kubeconfigs, err := minikube.UpdateContexts(ctx, stack, m)
		if err != nil {
			return err
		}
		m, err = loadModel(cmd, args[0], kubeconfigs)
		if err != nil {
			return err
		}
		return execute(cmd, m, cfg, rc, engine.ModeRun, store)
	},
}

func init() {
	runMinikubeCmd.Flags().BoolVar(&runMinikubeDebug, "debug", false, "Print debug output if the run fails")
	rootCmd.AddCommand(runMinikubeCmd)
}
