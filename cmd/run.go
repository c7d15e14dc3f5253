package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/artifact"
	"github.com/stevehiehn/skewer/internal/engine"
)

var (
	runKubeconfigs []string
	runDebug       bool
)

var runCmd = &cobra.Command{
	Use:   "run <skewer.yaml>",
	Short: "Run the example steps against existing clusters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkEnvironment(requiredPrograms...); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, runDebug)
		if err != nil {
			return err
		}
		m, err := loadModel(cmd, args[0], runKubeconfigs)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext(cfg)
		store, err := artifact.New(rc.RunID, cfg.WorkDir)
		if err != nil {
			return err
		}
		return execute(cmd, m, cfg, rc, engine.ModeRun, store)
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runKubeconfigs, "kubeconfig", nil, "Kubeconfig for the next kubernetes site, in site order")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Print debug output if the run fails")
	rootCmd.AddCommand(runCmd)
}
