// Command subcon runs the subscription-conversion HTTP service described
// by a pref.toml file: it loads the protocol schema registry, starts the
// gin router, and serves /sub plus the admin facade until the process is
// killed.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wallacegibbon/subcon/internal/logging"
	"github.com/wallacegibbon/subcon/internal/server"
)

var prefPath string

var rootCmd = &cobra.Command{
	Use:   "subcon",
	Short: "Convert proxy subscriptions into Clash and Surge configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(prefPath)
	},
}

func init() {
	rootCmd.Flags().StringVar(&prefPath, "pref", "conf/pref.toml", "path to pref.toml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(prefPath string) error {
	logger := logging.Init(zerolog.InfoLevel)

	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	srv, err := server.New(prefPath, baseDir)
	if err != nil {
		return fmt.Errorf("starting subcon: %w", err)
	}

	addr := srv.ListenAddr()
	logger.Info().Str("addr", addr).Str("pref", prefPath).Msg("subcon listening")

	if err := srv.Router().Run(addr); err != nil {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}
