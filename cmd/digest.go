package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"workstation/internal/auth"
	"workstation/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// digestCmd prints the value to configure as API_KEY_SHA256
var digestCmd = &cobra.Command{
	Use:   "digest [api key]",
	Short: "Print the SHA-256 digest of an API key",
	Long:  `Print the hex SHA-256 of an API key, the value expected in API_KEY_SHA256. The key is read from stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var key string
		if len(args) > 0 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				logging.Logger().Fatal("Failed to read API key from stdin", zap.Error(err))
			}
			key = strings.TrimRight(line, "\r\n")
		}
		fmt.Println(auth.Digest(key))
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
