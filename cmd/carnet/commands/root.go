// Package commands holds the carnet command tree: the auth service, the API
// gateway and a session store load generator.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "carnet",
		Short:         "Digital ID card authentication services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default ./carnet.yaml or /etc/carnet/carnet.yaml)")

	rootCmd.AddCommand(
		NewAuthCommand(&configFile),
		NewGatewayCommand(&configFile),
		NewLoadtestCommand(),
		NewVersionCommand(),
	)
	return rootCmd
}
