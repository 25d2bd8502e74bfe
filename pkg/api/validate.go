package api

import "fmt"

// Validate checks every schema in the set.
func (s Schemas) Validate() error {
	for _, command := range s.Commands() {
		if command == "" {
			return fmt.Errorf("schema with empty command name")
		}
		if err := s[command].Validate(); err != nil {
			return fmt.Errorf("schema %q: %w", command, err)
		}
	}
	return nil
}

// Validate checks that the schema has steps and that every step is named.
func (s Schema) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("schema has no steps")
	}
	for i, step := range s.Steps {
		if step == "" {
			return fmt.Errorf("step %d: event name is required", i)
		}
	}
	return nil
}
