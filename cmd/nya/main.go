// Package main is the entry point for the nya CLI.
//
// nya provisions and tears down a small k3s cluster by running ansible
// playbooks against the hosts listed in a JSON or YAML context file.
//
// Commands: init, base build, base destroy, schemas.
//
// For detailed usage information, run:
//
//	nya --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/systemstart/nya/cmd/nya/commands"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersion(version)
	err := commands.Root().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
