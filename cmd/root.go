package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/log"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "skewer",
	Short:         "Document and test multi-site Skupper examples",
	Long:          "Skewer generates the README of a Skupper example from its skewer.yaml and runs the example steps against real sites.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = log.NewContext(ctx, "skewer")

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
