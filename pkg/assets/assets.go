// Package assets embeds the schema definitions, playbooks and templates that
// ship with the binary.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

const (
	// SchemaPattern matches the built-in schema definitions.
	SchemaPattern = "schemas/*.json"
	// BaseTemplatePattern matches the templates staged next to base playbooks.
	BaseTemplatePattern = "templates/base_build/*.j2"

	initConfigTemplate = "init/config.json.tmpl"
)

//go:embed schemas playbooks templates init
var files embed.FS

// FS returns the embedded asset tree.
func FS() fs.FS {
	return files
}

// PlaybookPath returns the location of the named playbook inside FS.
func PlaybookPath(name string) string {
	return path.Join("playbooks", name+".yml")
}

// Playbook returns the content of the named playbook, e.g. "build_nodes".
func Playbook(name string) ([]byte, error) {
	data, err := fs.ReadFile(files, PlaybookPath(name))
	if err != nil {
		return nil, fmt.Errorf("playbook %q: %w", name, err)
	}
	return data, nil
}

// InitConfigTemplate returns the starter config template used by `nya init`.
func InitConfigTemplate() string {
	data, err := fs.ReadFile(files, initConfigTemplate)
	if err != nil {
		panic(fmt.Sprintf("embedded %s missing: %v", initConfigTemplate, err))
	}
	return string(data)
}
