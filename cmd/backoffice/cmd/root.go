// Package cmd provides the CLI commands for the back-office client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esencia-retail/backoffice-cli/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "backoffice",
	Short: "Back-office client - session-managed access to the retail API",
	Long: `backoffice is the command-line client for the retail back-office API.

It authenticates against the API and manages the local session: an
8-hour absolute lifetime, a 10-minute inactivity timeout, and a
background monitor that closes expired sessions on its own.

Quick start:
  1. backoffice login --email you@example.com
  2. backoffice status

Configuration:
  Config is loaded from backoffice.yaml in the current directory,
  $HOME/.backoffice/, or /etc/backoffice/.

  Environment variables can override config values with the BACKOFFICE_
  prefix. Example: BACKOFFICE_API_BASE_URL=https://api.example.com/api

Commands:
  login       Authenticate and open a session
  logout      Close the session
  status      Show current session state
  watch       Keep the session monitored in the foreground
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./backoffice.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
