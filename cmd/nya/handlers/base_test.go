package handlers

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/nya/pkg/api"
	"github.com/systemstart/nya/pkg/processing"
)

const baseConfig = `{
  "nya": {
    "control_plane": {"hosts": {"cp-1": {"ansible_host": "10.0.0.1"}}, "vars": {}},
    "nodes": {"hosts": {"node-1": {"ansible_host": "10.0.0.11"}}, "vars": {}}
  }
}`

// baseFixture writes a config file and an ansible-playbook stub running body.
// TMPDIR points at a fresh directory so leftovers can be detected.
func baseFixture(t *testing.T, body string) (config, stub, tmp string) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not in PATH")
	}

	dir := t.TempDir()
	config = filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(config, []byte(baseConfig), 0o600))

	stub = filepath.Join(dir, "ansible-playbook")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\n"+body+"\n"), 0o700))

	tmp = t.TempDir()
	t.Setenv("TMPDIR", tmp)
	return config, stub, tmp
}

func TestBase_DestroySucceeds(t *testing.T) {
	config, stub, tmp := baseFixture(t, `echo "PLAY RECAP"`)
	metrics := filepath.Join(t.TempDir(), "nya.prom")

	err := Base(context.Background(), api.CommandBaseDestroy, BaseOptions{
		ConfigPath:      config,
		AnsiblePlaybook: stub,
		MetricsTextfile: metrics,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `nya_runtime_steps_total{result="succeeded",step="onDestroyNodes"} 1`)
	assert.Contains(t, string(data), `nya_runtime_steps_total{result="succeeded",step="onDestroyControlPlane"} 1`)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "work and control directories should be removed")
}

func TestBase_ContinuePolicyIgnoresFailures(t *testing.T) {
	config, stub, _ := baseFixture(t, `echo "fatal: unreachable" >&2; exit 2`)

	err := Base(context.Background(), api.CommandBaseDestroy, BaseOptions{
		ConfigPath:      config,
		AnsiblePlaybook: stub,
	})
	assert.NoError(t, err)
}

func TestBase_FailFastStopsAtFirstStep(t *testing.T) {
	config, stub, _ := baseFixture(t, `exit 2`)
	metrics := filepath.Join(t.TempDir(), "nya.prom")

	err := Base(context.Background(), api.CommandBaseDestroy, BaseOptions{
		ConfigPath:      config,
		AnsiblePlaybook: stub,
		FailFast:        true,
		MetricsTextfile: metrics,
	})
	require.Error(t, err)

	var stepErr *processing.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "onDestroyNodes", stepErr.Step)

	data, readErr := os.ReadFile(metrics)
	require.NoError(t, readErr)
	assert.NotContains(t, string(data), "onDestroyControlPlane")
}

func TestBase_SchemasDirOverride(t *testing.T) {
	config, stub, _ := baseFixture(t, `echo "K3S_TOKEN=K10abc::server:def"`)
	schemasDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(schemasDir, "lab.json"),
		[]byte(`{"lab:control-plane": {"steps": ["onBuildMainServer"]}}`), 0o600))

	err := Base(context.Background(), "lab:control-plane", BaseOptions{
		ConfigPath:      config,
		AnsiblePlaybook: stub,
		SchemasDir:      schemasDir,
	})
	assert.NoError(t, err)
}

func TestBase_StartupErrors(t *testing.T) {
	tests := []struct {
		name          string
		command       string
		opts          func(config string) BaseOptions
		errorContains string
	}{
		{
			name:          "unknown command",
			command:       "base:rebuild",
			opts:          func(config string) BaseOptions { return BaseOptions{ConfigPath: config} },
			errorContains: "unknown command",
		},
		{
			name:    "missing config",
			command: api.CommandBaseDestroy,
			opts: func(config string) BaseOptions {
				return BaseOptions{ConfigPath: filepath.Join(filepath.Dir(config), "missing.json")}
			},
			errorContains: "loading context",
		},
		{
			name:    "missing schemas dir",
			command: api.CommandBaseDestroy,
			opts: func(config string) BaseOptions {
				return BaseOptions{ConfigPath: config, SchemasDir: filepath.Join(filepath.Dir(config), "schemas")}
			},
			errorContains: "schemas directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, _, _ := baseFixture(t, `exit 0`)

			err := Base(context.Background(), tt.command, tt.opts(config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestBase_CancelledContext(t *testing.T) {
	config, stub, _ := baseFixture(t, `exit 0`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Base(ctx, api.CommandBaseDestroy, BaseOptions{ConfigPath: config, AnsiblePlaybook: stub})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
