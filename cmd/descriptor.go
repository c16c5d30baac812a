package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"workstation/internal/logging"
	"workstation/internal/provisioning"
	"workstation/internal/ssh"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// descriptorCmd shows the instance resource the endpoint submits on create
var descriptorCmd = &cobra.Command{
	Use:   "descriptor",
	Short: "Print the instance resource sent on create",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if fingerprint, err := ssh.Fingerprint(cfg.SSHPublicKey); err == nil {
			logging.Logger().Info("Login key",
				zap.String("user", cfg.User),
				zap.String("fingerprint", fingerprint))
		}

		instance, err := provisioning.NewDescriptor(cfg)
		if err != nil {
			logging.Logger().Fatal("Failed to build instance descriptor", zap.Error(err))
		}

		data, err := instance.MarshalJSON()
		if err != nil {
			logging.Logger().Fatal("Failed to encode instance descriptor", zap.Error(err))
		}
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			logging.Logger().Fatal("Failed to format instance descriptor", zap.Error(err))
		}
		fmt.Println(out.String())
	},
}

func init() {
	rootCmd.AddCommand(descriptorCmd)
}
