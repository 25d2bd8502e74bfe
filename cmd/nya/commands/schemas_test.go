package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemas(t *testing.T) {
	cmd := Schemas()

	require.NotNil(t, cmd)
	assert.Equal(t, "schemas", cmd.Use)
	require.NotNil(t, cmd.Flags().Lookup("schemas-dir"))
}

func TestSchemas_Execute(t *testing.T) {
	var out bytes.Buffer
	cmd := Schemas()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "base:destroy\n  1. onDestroyNodes\n  2. onDestroyControlPlane\n")
}
