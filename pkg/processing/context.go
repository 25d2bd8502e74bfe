package processing

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Context is the run-wide key/value store shared by all handlers. Values are
// JSON-like: nil, string, float64, bool, []any or map[string]any.
type Context struct {
	mu     sync.Mutex
	values map[string]any
	logger *slog.Logger
}

// LoadContextFile reads a JSON or YAML (by extension) object and returns it as a Context.
func LoadContextFile(filename string) (*Context, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parsing context file: top level must be an object")
	}

	values, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	m, _ := values.(map[string]any)
	return NewContext(m), nil
}

// NewContext wraps values. The map is copied.
func NewContext(values map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(values)), logger: slog.Default()}
	for k, v := range values {
		if nv, err := normalize(v); err == nil {
			c.values[k] = nv
		}
	}
	return c
}

// Get returns a copy of the value stored under key, or nil. An exact key
// match wins; otherwise key is treated as a dotted path into nested objects,
// e.g. "nya.control_plane.vars".
func (c *Context) Get(key string) any {
	c.mu.Lock()
	v, ok := c.lookup(key)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	// Stored values are already normalised and never mutated in place, so the
	// copy can be made outside the lock.
	out, err := normalize(v)
	if err != nil {
		return nil
	}
	return out
}

// Set stores value under key, replacing any previous value. A value that
// cannot be represented as JSON is dropped and the key keeps its old value.
func (c *Context) Set(key string, value any) {
	nv, err := normalize(value)
	if err != nil {
		c.logger.Debug("context value dropped", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = nv
}

// Snapshot returns a deep copy of every stored value.
func (c *Context) Snapshot() map[string]any {
	c.mu.Lock()
	top := maps.Clone(c.values)
	c.mu.Unlock()

	out, err := normalize(top)
	if err != nil {
		return map[string]any{}
	}
	m, _ := out.(map[string]any)
	return m
}

// lookup must be called with c.mu held.
func (c *Context) lookup(key string) (any, bool) {
	if v, ok := c.values[key]; ok {
		return v, true
	}

	segments := strings.Split(key, ".")
	for i := len(segments) - 1; i > 0; i-- {
		root, ok := c.values[strings.Join(segments[:i], ".")]
		if !ok {
			continue
		}
		if v, found := descend(root, segments[i:]); found {
			return v, true
		}
	}
	return nil, false
}

func descend(v any, path []string) (any, bool) {
	for _, segment := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// normalize converts v into a fresh JSON-like value tree.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
