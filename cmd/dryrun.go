package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/engine"
)

var dryRunKubeconfigs []string

var dryRunCmd = &cobra.Command{
	Use:   "dry-run <skewer.yaml>",
	Short: "Show what would be executed without running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		m, err := loadModel(cmd, args[0], dryRunKubeconfigs)
		if err != nil {
			return err
		}

		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Dry-run: %s\n\n", m.Title)
		}
		return execute(cmd, m, cfg, engine.NewRunContext(cfg), engine.ModeDryRun, nil)
	},
}

func init() {
	dryRunCmd.Flags().StringArrayVar(&dryRunKubeconfigs, "kubeconfig", nil, "Kubeconfig for the next kubernetes site, in site order")
	rootCmd.AddCommand(dryRunCmd)
}
