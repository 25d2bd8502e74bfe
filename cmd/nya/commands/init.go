package commands

import (
	"github.com/spf13/cobra"

	"github.com/systemstart/nya/cmd/nya/handlers"
)

// Init returns the init command.
//
// It writes a starter context file. An existing file is never overwritten.
func Init() *cobra.Command {
	var opts handlers.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter nya config file",
		Long: `Init writes a starter context file listing one control plane host and one
node. Edit the hosts and vars before running "nya base build".

A directory argument to --output places config.json inside it. An existing
file is left untouched.

Example:
  nya init -o ~/clusters/lab`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", handlers.DefaultConfigPath, "Path of the config file to create")
	cmd.Flags().StringVar(&opts.RemoteUser, "remote-user", "", "SSH user written into the host entries (default root)")
	cmd.Flags().StringVar(&opts.Zone, "zone", "", "DNS zone served by the control plane (default nya.lan)")

	return cmd
}
