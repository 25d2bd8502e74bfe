// Package scaffold renders the starter configuration written by `nya init`.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/goccy/go-json"
)

// DefaultConfigFile is the file name used when the target is a directory.
const DefaultConfigFile = "config.json"

// ErrExists is returned by Write when the target file is already present.
var ErrExists = errors.New("config file already exists")

// Data fills the starter template. Empty fields fall back to template defaults.
type Data struct {
	RemoteUser string
	Home       string
	Zone       string
}

// DefaultData uses the current user's home directory.
func DefaultData() Data {
	home, _ := os.UserHomeDir()
	return Data{Home: home}
}

// Render executes tmpl with sprig functions and checks the result is JSON.
func Render(name, tmpl string, data Data) ([]byte, error) {
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, fmt.Errorf("rendered %s is not valid JSON", name)
	}
	return buf.Bytes(), nil
}

// ResolvePath expands a leading ~ and maps a directory to the config file
// inside it.
func ResolvePath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	info, err := os.Stat(p)
	if err == nil && info.IsDir() {
		return filepath.Join(p, DefaultConfigFile), nil
	}
	return p, nil
}

// Write creates path with content. An existing file is left untouched and
// ErrExists is returned.
func Write(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	_, writeErr := f.Write(content)
	if closeErr := f.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("writing output file: %w", writeErr)
	}
	return nil
}
