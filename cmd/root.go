package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "workstation",
	Short: "On-demand personal workstation VM on Google Cloud",
	Long: `workstation serves a single authenticated endpoint that creates (or restarts) a
preemptible Compute Engine instance from its persistent boot disk, opens the SSH
firewall rule to the caller's address and points a Cloud DNS record at the
instance. A DELETE request deletes the instance again; the disk is kept.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
