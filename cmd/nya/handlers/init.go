package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/systemstart/nya/pkg/assets"
	"github.com/systemstart/nya/pkg/scaffold"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// InitOptions are the inputs of the init command.
type InitOptions struct {
	OutputPath string
	RemoteUser string
	Zone       string
}

// Init renders the starter config and writes it to opts.OutputPath. When the
// file already exists a notice is printed and nothing is written.
func Init(out io.Writer, opts InitOptions) error {
	path, err := scaffold.ResolvePath(opts.OutputPath)
	if err != nil {
		return err
	}

	data := scaffold.DefaultData()
	data.RemoteUser = opts.RemoteUser
	data.Zone = opts.Zone

	content, err := scaffold.Render(scaffold.DefaultConfigFile, assets.InitConfigTemplate(), data)
	if err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}

	err = scaffold.Write(path, content)
	if errors.Is(err, scaffold.ErrExists) {
		printExists(out, path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(out, path)
	return nil
}

func printExists(out io.Writer, path string) {
	_, _ = fmt.Fprintln(out, errorStyle.Render("Config file already exists, nothing written."))
	_, _ = fmt.Fprintf(out, "  Location: %s\n", pathStyle.Render(path))
	_, _ = fmt.Fprintln(out, "  Remove it or pass another path with --output.")
}

func printInitSuccess(out io.Writer, path string) {
	_, _ = fmt.Fprintln(out, successStyle.Render("Created Nya base config template"))
	_, _ = fmt.Fprintf(out, "  Location: %s\n", pathStyle.Render(path))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, headingStyle.Render("Next steps:"))
	_, _ = fmt.Fprintln(out, "  1. Edit the hosts and vars in the config file")
	_, _ = fmt.Fprintf(out, "  2. Run: nya base build -c %s\n", path)
}
