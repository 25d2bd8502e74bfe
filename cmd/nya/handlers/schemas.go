package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/systemstart/nya/pkg/api"
	"github.com/systemstart/nya/pkg/processing"
)

// Schemas prints every known command with its numbered steps.
func Schemas(out io.Writer, schemasDir string) error {
	schemas, err := loadSchemas(schemasDir)
	if err != nil {
		return err
	}

	for _, command := range schemas.Commands() {
		_, _ = fmt.Fprintln(out, command)
		for i, step := range schemas[command].Steps {
			_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, step)
		}
	}
	return nil
}

// loadSchemas returns the built-in schemas with the definitions found in dir
// layered on top. An empty dir yields the built-ins.
func loadSchemas(dir string) (api.Schemas, error) {
	schemas, err := processing.BuiltinSchemas()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return schemas, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schemas directory %s is not a directory", dir)
	}

	user, err := api.LoadSchemas(os.DirFS(dir), api.DefaultSchemaPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas from %s: %w", dir, err)
	}
	return schemas.Merge(user), nil
}
