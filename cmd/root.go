package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceverify/internal/config"
	"github.com/kozaktomas/faceverify/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "faceverify",
	Short: "Verify that an ID document and a photo show the same person",
	Long: `faceverify compares the face on an identity document with the face on a
selfie. Faces are searched at 0, 90, 180 and 270 degrees so rotated scans
still work, the two crops are compared by a face embedding model, and a
side-by-side image of both faces is stored for auditing.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads and validates the configuration and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	return cfg, nil
}
