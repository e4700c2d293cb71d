// Package cmd wires the collector's subcommands.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/instalytics/collector/pkg/logging"
)

var log = logrus.New()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Instagram engagement metrics collector",
	Long: `Collects Instagram posts and their engagement metrics through the
Graph API, respecting the hourly call quota, and stores them in Postgres.

Use the subcommands to run a specific collection mode.`,
	SilenceUsage:      true,
	PersistentPreRun:  setupLogging,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

// Execute runs the root command. It is called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(cmd *cobra.Command, args []string) {
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		log.WithError(err).Debug("No .env file loaded")
	}

	log.SetFormatter(logging.NewColoredJSONFormatter())

	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.WithFields(logrus.Fields{
				"attempted_level": logLevel,
				"default_level":   "INFO",
			}).Warn("Invalid log level specified, defaulting to INFO")
		}
	}
}
