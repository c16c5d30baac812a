package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"workstation/internal/logging"
	"workstation/internal/ssh"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	keygenDir     string
	keygenName    string
	keygenComment string
)

// keygenCmd creates the login key pair whose public half goes into SSH_PUBLIC_KEY
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create or show the workstation login key pair",
	Long:  `Create an ed25519 key pair for logging in to the workstation, or reuse the existing one, and print the public key to set as SSH_PUBLIC_KEY.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := keygenDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				logging.Logger().Fatal("Failed to resolve home directory", zap.Error(err))
			}
			dir = filepath.Join(home, ".ssh")
		}

		kp, err := ssh.GetOrGenerateKeyPair(dir, keygenName, keygenComment)
		if err != nil {
			logging.Logger().Fatal("Failed to prepare key pair", zap.Error(err))
		}

		fingerprint, err := ssh.Fingerprint(kp.PublicKey)
		if err != nil {
			logging.Logger().Fatal("Failed to fingerprint public key", zap.Error(err))
		}
		logging.Logger().Info("Login key ready",
			zap.String("private_key", kp.PrivateKeyPath),
			zap.String("fingerprint", fingerprint))

		fmt.Println(kp.PublicKey)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenDir, "dir", "", "Directory holding the key pair (default ~/.ssh)")
	keygenCmd.Flags().StringVar(&keygenName, "name", "workstation", "Private key file name")
	keygenCmd.Flags().StringVar(&keygenComment, "comment", "", "Comment appended to the public key")
}
