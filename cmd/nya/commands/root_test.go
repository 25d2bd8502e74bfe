package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "nya", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"init", "base", "schemas"})
}

func TestRoot_PersistentFlags(t *testing.T) {
	cmd := Root()

	tests := []struct {
		name     string
		defValue string
	}{
		{name: "logging-type", defValue: "tint"},
		{name: "log-level", defValue: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestRoot_Version(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	assert.Equal(t, "1.2.3", Root().Version)
}

func TestRoot_ExecuteSchemas(t *testing.T) {
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := Root()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"schemas", "--logging-type", "text"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "base:build\n  1. onPreflight\n")
}

func TestRoot_InvalidLoggingType(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := Root()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"schemas", "--logging-type", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown logging type")
}
