package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kbdraft/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kbdraft",
	Short: "Knowledge-grounded support draft service",
	Long: `kbdraft indexes a knowledge base of short text documents with tf-idf
and serves draft replies for support tickets, grounded in the most
relevant snippets.

Example usage:
  kbdraft build                        # Validate the KB and show index stats
  kbdraft query -q "refund policy"     # Search the knowledge base
  kbdraft serve                        # Start the HTTP service`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; missing file is fine.
		godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kbdraft.yaml)")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// newLogger builds a logrus entry from the logging config.
func newLogger(cfg *config.Config) *logrus.Entry {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return logrus.NewEntry(log)
}
