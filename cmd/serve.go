package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"workstation/internal/config"
	"workstation/internal/logging"
	"workstation/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveShutdownTimeout time.Duration

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workstation endpoint",
	Long:  `Start the HTTP endpoint. All settings are read from the environment and the optional config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		logging.Logger().Info("Configuration loaded",
			zap.String("address", cfg.Server.Address),
			zap.String("project", cfg.ProjectID),
			zap.String("zone", cfg.Zone),
			zap.String("instance", cfg.Instance.Name),
			zap.String("dns_name", cfg.DNSName()),
			zap.String("firewall_rule", cfg.Instance.FirewallRule),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handler, err := server.NewWorkstationHandler(ctx, cfg)
		if err != nil {
			logging.Logger().Fatal("Failed to create handler", zap.Error(err))
		}

		srv := server.New(cfg.Server.Address, handler)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				logging.Logger().Fatal("Server failed", zap.Error(err))
			}
		case <-ctx.Done():
			logging.Logger().Info("Shutting down server")
			if err := srv.Shutdown(context.Background(), serveShutdownTimeout); err != nil {
				logging.Logger().Error("Graceful shutdown failed", zap.Error(err))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 5*time.Minute, "How long to wait for in-flight requests on shutdown")
}

// loadConfig loads the configuration and re-initialises the logger at the configured level.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := logging.InitLogger(cfg.LogLevel); err != nil {
		logging.Logger().Warn("Failed to apply log level", zap.Error(err))
	}
	return cfg
}
