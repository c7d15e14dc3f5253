package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/skewer/internal/readme"
)

var renderOutput string

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

var renderCmd = &cobra.Command{
	Use:   "render [README.md]",
	Short: "Render a generated README to HTML for preview",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := "README.md"
		if len(args) == 1 {
			input = args[0]
		}

		source, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("reading %s: %w", input, err)
		}
		body, err := readme.RenderHTML(source)
		if err != nil {
			return err
		}

		page := fmt.Sprintf(htmlPage, filepath.Base(input), body)
		if err := os.WriteFile(renderOutput, []byte(page), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", renderOutput, err)
		}
		fmt.Printf("Wrote %s.\n", renderOutput)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "README.html", "Output file")
	rootCmd.AddCommand(renderCmd)
}
