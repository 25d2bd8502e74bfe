package steps

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"

	"github.com/systemstart/nya/pkg/assets"
	"github.com/systemstart/nya/pkg/bus"
)

// staged is the on-disk layout of one invocation.
type staged struct {
	dir       string
	playbook  string
	inventory string
	vars      string
}

func (s *staged) cleanup() error {
	return os.RemoveAll(s.dir)
}

// stage creates a private work directory holding the playbook, its templates
// and the inventory rendered from the context. Nothing is shared with other
// invocations, so concurrent runs never overwrite each other's files.
func (e *Executor) stage(runID string, rt bus.Runtime, pb Playbook) (*staged, error) {
	inventory, err := inventoryJSON(rt.Get(pb.InventoryKey), pb.InventoryKey)
	if err != nil {
		return nil, err
	}

	vars, err := varsJSON(rt.Get(pb.VarsKey), pb.VarsKey, pb.Vars)
	if err != nil {
		return nil, err
	}

	content, err := fs.ReadFile(e.Assets, assets.PlaybookPath(pb.Name))
	if err != nil {
		return nil, fmt.Errorf("reading playbook: %w", err)
	}

	dir, err := os.MkdirTemp(e.TempDir, fmt.Sprintf("nya-%s-%s-", shortID(runID), pb.Name))
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	s := &staged{dir: dir, vars: vars, playbook: filepath.Join(dir, path.Base(assets.PlaybookPath(pb.Name)))}

	if err := e.populate(s, content, inventory); err != nil {
		return nil, errors.Join(err, s.cleanup())
	}
	return s, nil
}

func (e *Executor) populate(s *staged, playbook, inventory []byte) error {
	if err := os.WriteFile(s.playbook, playbook, 0o600); err != nil {
		return fmt.Errorf("writing playbook: %w", err)
	}

	templates, err := globFS(e.Assets, []string{assets.BaseTemplatePattern})
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	if len(templates) > 0 {
		if err := os.MkdirAll(filepath.Join(s.dir, "templates"), 0o750); err != nil {
			return fmt.Errorf("creating template directory: %w", err)
		}
	}
	for _, name := range templates {
		if err := copyAsset(e.Assets, name, filepath.Join(s.dir, "templates", path.Base(name))); err != nil {
			return err
		}
	}

	f, err := os.CreateTemp(s.dir, "inventory-*.json")
	if err != nil {
		return fmt.Errorf("creating inventory file: %w", err)
	}
	s.inventory = f.Name()

	_, writeErr := f.Write(inventory)
	if closeErr := f.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("writing inventory file: %w", writeErr)
	}
	return nil
}

func copyAsset(fsys fs.FS, name, dest string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

func globFS(fsys fs.FS, patterns []string) ([]string, error) {
	var result []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		result = append(result, matches...)
	}
	slices.Sort(result)
	result = slices.Compact(result)
	return result, nil
}

// inventoryJSON wraps the subtree under its group name, e.g.
// {"control_plane": {"hosts": ..., "vars": ...}}.
func inventoryJSON(value any, key string) ([]byte, error) {
	if value == nil {
		return nil, fmt.Errorf("inventory %q not found in context", key)
	}
	data, err := json.MarshalIndent(map[string]any{inventoryGroup(key): value}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding inventory %q: %w", key, err)
	}
	return data, nil
}

func varsJSON(value any, key string, extra map[string]any) (string, error) {
	vars := map[string]any{}
	switch v := value.(type) {
	case nil:
	case map[string]any:
		vars = v
	default:
		return "", fmt.Errorf("vars %q is not an object (got %T)", key, value)
	}
	maps.Copy(vars, extra)

	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("encoding vars %q: %w", key, err)
	}
	return string(data), nil
}
