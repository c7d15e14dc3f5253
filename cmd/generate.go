package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/log"
	"github.com/stevehiehn/skewer/internal/readme"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate <skewer.yaml>",
	Short: "Generate the README of an example",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.FromContext(cmd.Context()).Info("generating the readme", "skewer_file", args[0], "output_file", generateOutput)

		m, err := loadModel(cmd, args[0], nil)
		if err != nil {
			return err
		}
		if err := readme.WriteFile(generateOutput, m); err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{"output": generateOutput, "steps": len(m.Steps)})
		}
		fmt.Printf("Wrote %s.\n", generateOutput)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "README.md", "Output file")
	rootCmd.AddCommand(generateCmd)
}
