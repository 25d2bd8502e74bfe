package api

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"
)

// ParseSchemas decodes one schema definition document.
func ParseSchemas(data []byte) (Schemas, error) {
	var s Schemas
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema definitions: %w", err)
	}
	if s == nil {
		s = make(Schemas)
	}
	return s, nil
}

// LoadSchemas reads every file in fsys matching one of patterns and merges
// them in lexical path order. A later file overrides an earlier definition of
// the same command. The merged result is validated.
func LoadSchemas(fsys fs.FS, patterns ...string) (Schemas, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultSchemaPattern}
	}

	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	merged := make(Schemas)
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading schema file %s: %w", file, err)
		}
		s, err := ParseSchemas(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		maps.Copy(merged, s)
	}

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("validating schemas: %w", err)
	}
	return merged, nil
}

// Merge returns a new set with the entries of overrides layered over s.
func (s Schemas) Merge(overrides Schemas) Schemas {
	merged := make(Schemas, len(s)+len(overrides))
	maps.Copy(merged, s)
	maps.Copy(merged, overrides)
	return merged
}

// Lookup returns the schema registered for command.
func (s Schemas) Lookup(command string) (Schema, error) {
	schema, ok := s[command]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownCommand, command, s.Commands())
	}
	return schema, nil
}

// Commands returns the known command names, sorted.
func (s Schemas) Commands() []string {
	return slices.Sorted(maps.Keys(s))
}
