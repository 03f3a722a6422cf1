package main

import (
	"github.com/spf13/cobra"

	"pdf-highlighter/internal/config"
	"pdf-highlighter/internal/logger"
)

var (
	configPath string
	resultsDir string
	verbose    bool

	cfgManager *config.ConfigManager
)

var rootCmd = &cobra.Command{
	Use:           "pdf-highlighter",
	Short:         "Translate PDF selections and highlight the results on the page",
	SilenceUsage:  true,
	SilenceErrors: false,

	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml or .json), default in the user config directory")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results", "", "directory holding stored translations per document")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(pagesCmd, translateCmd, configCmd, resultsCmd)
}

// setup loads the configuration and starts the logger.
func setup(cmd *cobra.Command, args []string) error {
	m, err := config.NewConfigManager(configPath)
	if err != nil {
		return err
	}
	if err := m.Load(); err != nil {
		return err
	}
	cfgManager = m

	cfg := m.GetConfig()
	logCfg := logger.DefaultConfig()
	logCfg.LogFilePath = cfg.LogFile
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.EnableConsole = verbose
	if verbose && cfg.LogLevel == config.DefaultLogLevel {
		logCfg.Level = logger.LevelDebug
	}
	return logger.Init(logCfg)
}
