package commands

import (
	"github.com/spf13/cobra"

	"github.com/systemstart/nya/cmd/nya/handlers"
)

// Schemas returns the schemas command, which lists every known command and
// its steps.
func Schemas() *cobra.Command {
	var schemasDir string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the known commands and their steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Schemas(cmd.OutOrStdout(), schemasDir)
		},
	}

	cmd.Flags().StringVar(&schemasDir, "schemas-dir", "", "Directory of schema JSON files merged over the built-in schemas")

	return cmd
}
