// Package cli implements the amica-bridge command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/semperai/amica-bridge/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "amica-bridge",
	Short: "Hook pipeline and JSON-RPC control plane for Amica",
	Long: `amica-bridge exposes the Amica avatar pipeline to external tools:

  - Named checkpoints across chat, speech, vision and scenario flows,
    with priority-ordered hooks that can inspect and rewrite payloads
  - JSON-RPC 2.0 over WebSocket and HTTP POST
  - Event subscriptions with glob patterns and per-connection fan-out

Start the bridge:
  amica-bridge serve`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./amica.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// setupLogging configures the global zerolog logger from config, with
// the --verbose flag forcing debug level.
func setupLogging(cfg *config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lc := logger.With()
	if cfg.Timestamp {
		lc = lc.Timestamp()
	}
	if cfg.Caller {
		lc = lc.Caller()
	}
	log.Logger = lc.Logger()
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("amica-bridge version %s", "0.1.0-dev")
}
