// Package handlers implements the business logic behind the CLI commands.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/systemstart/nya/pkg/logging"
)

// DefaultConfigPath is used by init, build and destroy when no path is given.
const DefaultConfigPath = "~/.nya/config.json"

// Setup loads .env from the working directory and installs the process
// logger writing to w. A missing .env file is not an error.
func Setup(w io.Writer, loggingType, logLevel string) (*slog.Logger, error) {
	envErr := godotenv.Load()
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", envErr)
	}

	logger, err := logging.Initialize(w, loggingType, logLevel)
	if err != nil {
		return nil, err
	}

	if envErr != nil {
		logger.Debug("no .env file found")
	} else {
		logger.Debug("using .env file")
	}
	return logger, nil
}
