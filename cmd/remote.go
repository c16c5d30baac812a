package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"workstation/internal/client"
	"workstation/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	remoteEndpoint   string
	remoteCheckIPURL string
	remoteTimeout    time.Duration
)

// upCmd provisions the workstation through a deployed endpoint
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the workstation through a deployed endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		c := client.New(requireEndpoint(), requireAPIKey(), remoteTimeout)
		ctx := context.Background()

		ip, err := client.NewIPResolver(remoteCheckIPURL, 3).CurrentIP(ctx)
		if err != nil {
			logging.Logger().Fatal("Failed to discover current IP", zap.Error(err))
		}
		logging.Logger().Info("Requesting workstation", zap.String("current_ip", ip))

		instanceIP, err := c.Up(ctx, ip)
		if err != nil {
			logging.Logger().Fatal("Failed to start workstation", zap.Error(err))
		}
		fmt.Println(instanceIP)
	},
}

// downCmd deletes the workstation through a deployed endpoint
var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Delete the workstation through a deployed endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		c := client.New(requireEndpoint(), requireAPIKey(), remoteTimeout)

		msg, err := c.Down(context.Background())
		if err != nil {
			logging.Logger().Fatal("Failed to delete workstation", zap.Error(err))
		}
		fmt.Println(msg)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)

	for _, c := range []*cobra.Command{upCmd, downCmd} {
		c.Flags().StringVarP(&remoteEndpoint, "endpoint", "e", os.Getenv("WORKSTATION_ENDPOINT"), "Deployed endpoint URL")
		c.Flags().DurationVar(&remoteTimeout, "timeout", 10*time.Minute, "Request timeout")
	}
	upCmd.Flags().StringVar(&remoteCheckIPURL, "checkip-url", client.DefaultCheckIPURL, "Service returning the caller's public IPv4 address")
}

func requireEndpoint() string {
	if remoteEndpoint == "" {
		logging.Logger().Fatal("Endpoint is required (--endpoint or WORKSTATION_ENDPOINT)")
	}
	return remoteEndpoint
}

func requireAPIKey() string {
	key := os.Getenv("WORKSTATION_API_KEY")
	if key == "" {
		logging.Logger().Fatal("WORKSTATION_API_KEY is required")
	}
	return key
}
