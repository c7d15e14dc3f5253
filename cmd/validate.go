package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <skewer.yaml>",
	Short: "Validate a skewer file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadModel(cmd, args[0], nil)
		if err != nil {
			if jsonOutput {
				json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": false, "error": err.Error()})
			} else {
				fmt.Fprintf(os.Stderr, "Validation failed: %s\n", err)
			}
			os.Exit(1)
		}
		if jsonOutput {
			json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": true, "sites": m.Sites.Len(), "steps": len(m.Steps)})
		} else {
			fmt.Printf("%s is valid: %d sites, %d steps.\n", args[0], m.Sites.Len(), len(m.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
