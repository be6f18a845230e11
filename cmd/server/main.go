// Package main is the entry point for the rental calendar sync server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

// configDir is where an optional .env file is looked up.
var configDir string

var rootCmd = &cobra.Command{
	Use:   "rental-sync",
	Short: "Rental calendar feed sync service",
	Long: `rental-sync imports reservations from external iCal booking feeds
into the property reservation store, on demand or on a schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing an optional .env file")
	rootCmd.AddCommand(serveCmd, syncCmd, migrateCmd, healthCheckCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func main() {
	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	if err := rootCmd.Execute(); err != nil {
		l, logErr := logging.New(logging.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
