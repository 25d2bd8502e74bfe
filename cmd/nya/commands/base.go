package commands

import (
	"github.com/spf13/cobra"

	"github.com/systemstart/nya/cmd/nya/handlers"
	"github.com/systemstart/nya/pkg/api"
	"github.com/systemstart/nya/pkg/steps"
)

// Base returns the base command grouping build and destroy.
func Base() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "base",
		Short: "Build or destroy the base cluster",
	}

	cmd.AddCommand(baseRun("build", api.CommandBaseBuild,
		"Build the control plane and nodes",
		`Build checks SSH reachability of every host, builds the control plane,
joins the nodes with the captured k3s token, then runs the post-build and
validation playbooks.

Example:
  nya base build -c ~/.nya/config.json`))
	cmd.AddCommand(baseRun("destroy", api.CommandBaseDestroy,
		"Destroy the nodes and the control plane",
		`Destroy uninstalls k3s from the nodes first, then from the control plane.

Example:
  nya base destroy -c ~/.nya/config.json`))

	return cmd
}

func baseRun(use, command, short, long string) *cobra.Command {
	var opts handlers.BaseOptions

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Base(cmd.Context(), command, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", handlers.DefaultConfigPath, "Path to the nya config file")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Stop after the first failed step")
	cmd.Flags().DurationVar(&opts.StepTimeout, "step-timeout", 0, "Maximum duration of each step (0 = unlimited)")
	cmd.Flags().StringVar(&opts.SchemasDir, "schemas-dir", "", "Directory of schema JSON files merged over the built-in schemas")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "Write run metrics to this file in Prometheus text format")
	cmd.Flags().StringVar(&opts.AnsiblePlaybook, "ansible-playbook", steps.DefaultBinary, "ansible-playbook binary to run")

	return cmd
}
