package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_LoadsDotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NYA_SETUP_TEST=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("NYA_SETUP_TEST") })

	var buf bytes.Buffer
	logger, err := Setup(&buf, "text", "debug")

	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, "from-dotenv", os.Getenv("NYA_SETUP_TEST"))
	assert.Contains(t, buf.String(), "using .env file")
}

func TestSetup_WithoutDotenv(t *testing.T) {
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	_, err := Setup(&buf, "json", "debug")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no .env file found")
}

func TestSetup_InvalidDotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o750))
	t.Chdir(dir)

	_, err := Setup(&bytes.Buffer{}, "text", "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load .env")
}

func TestSetup_InvalidLogging(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name        string
		loggingType string
		logLevel    string
	}{
		{name: "unknown type", loggingType: "xml", logLevel: "info"},
		{name: "unknown level", loggingType: "text", logLevel: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(&bytes.Buffer{}, tt.loggingType, tt.logLevel)
			assert.Error(t, err)
		})
	}
}
