package main

import (
	"workstation/cmd"
	"workstation/internal/logging"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger; commands re-apply the configured level once loaded
	if err := logging.InitLogger("info"); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		if err := logging.Sync(); err != nil {
			// Log sync error, but don't fail the application
			logging.Logger().Debug("failed to sync logger on exit", zap.Error(err))
		}
	}()

	cmd.Execute()
}
