// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/systemstart/nya/cmd/nya/handlers"
	"github.com/systemstart/nya/pkg/logging"
)

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
}

// Root returns the root command for the nya CLI.
//
// The persistent pre-run loads a .env file from the working directory and
// installs the process logger before any subcommand runs.
func Root() *cobra.Command {
	var (
		loggingType string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:           "nya",
		Short:         "Provision a k3s cluster with ansible playbooks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := handlers.Setup(cmd.ErrOrStderr(), loggingType, logLevel)
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&loggingType, "logging-type", logging.Tint, "logging type: json, text or tint")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level: debug, info, warn, error")

	cmd.AddCommand(Init())
	cmd.AddCommand(Base())
	cmd.AddCommand(Schemas())

	return cmd
}
