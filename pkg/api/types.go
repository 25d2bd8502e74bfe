package api

import "errors"

const (
	// CommandBaseBuild provisions the control plane and worker nodes.
	CommandBaseBuild = "base:build"
	// CommandBaseDestroy tears the cluster down again.
	CommandBaseDestroy = "base:destroy"

	// DefaultSchemaPattern matches schema definition files.
	DefaultSchemaPattern = "**/*.json"
)

// ErrUnknownCommand is returned by Lookup for a command without a schema.
var ErrUnknownCommand = errors.New("unknown command")

// Schema is the ordered list of steps (event names) run for one command.
type Schema struct {
	Steps []string `json:"steps"`
}

// Schemas maps command names to their schema.
type Schemas map[string]Schema
