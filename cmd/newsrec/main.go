// Command newsrec serves the news recommendation API and provides operator
// commands for seeding the catalog and querying the index.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/config"
	logpkg "github.com/kailas-cloud/newsrec/internal/logger"
	"github.com/kailas-cloud/newsrec/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "newsrec",
	Short: "Semantic news article recommender",
	Long: `newsrec embeds a news catalog into an in-memory vector index and
recommends the articles most similar to a free-text query.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newsrec %s\n", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: config/<ENV>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise the file for ENV.
func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(config.GetEnv())
}

// setup loads configuration and builds the process logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(config.GetEnv(), level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
