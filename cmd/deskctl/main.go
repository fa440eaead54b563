// Deskctl controls a Linak standing desk from the command line.
//
// Usage:
//
//	deskctl [command] [flags]
//
// The first command that needs a desk pairs with the first one found and stores
// its address in the config file. See 'deskctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/logging"
	"github.com/mlsorensen/godesk/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		logging.Error("Command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %s\n", godesk.ShortMessage(err))
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	useMock    bool
)

var rootCmd = &cobra.Command{
	Use:   "deskctl",
	Short: "Linak standing desk controller",
	Long: `Control a Linak-based standing desk over Bluetooth Low Energy.

Moves the desk to a height or one of four presets, reads the current height,
and can bridge the desk to an MQTT broker for home automation.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $"+logging.LogLevelEnvVar+")")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Drive a simulated desk instead of Bluetooth hardware")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("deskctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
