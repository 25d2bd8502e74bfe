package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemas_Builtin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Schemas(&out, ""))

	assert.Equal(t, `base:build
  1. onPreflight
  2. onBuildMainServer
  3. onBuildNodeServers
  4. onRunPostBuild
  5. onValidateCluster
base:destroy
  1. onDestroyNodes
  2. onDestroyControlPlane
`, out.String())
}

func TestSchemas_UserDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.json"), []byte(`{
		"base:build": {"steps": ["onBuildMainServer"]},
		"lab:check": {"steps": ["onPreflight"]}
	}`), 0o600))

	var out bytes.Buffer
	require.NoError(t, Schemas(&out, dir))

	assert.Contains(t, out.String(), "base:build\n  1. onBuildMainServer\nbase:destroy")
	assert.Contains(t, out.String(), "lab:check\n  1. onPreflight\n")
}

func TestSchemas_BadDirectory(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name:  "missing",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
		},
		{
			name: "file instead of directory",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "schemas.json")
				require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
				return path
			},
		},
		{
			name: "invalid schema",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"x":{"steps":[]}}`), 0o600))
				return dir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Schemas(&bytes.Buffer{}, tt.setup(t)))
		})
	}
}
