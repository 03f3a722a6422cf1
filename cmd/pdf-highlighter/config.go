package main

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"pdf-highlighter/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *cfgManager.GetConfig()
		cfg.APIKey = maskKey(cfg.APIKey)
		data, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", cfgManager.GetConfigPath())
		_, err = out.Write(data)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration key and save the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfgManager.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgManager.Validate(); err != nil {
			return err
		}
		if err := cfgManager.Save(); err != nil {
			return err
		}
		logger.Info("configuration updated", logger.String("key", args[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", args[0], cfgManager.GetConfigPath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfgManager.GetConfigPath())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
}

// maskKey keeps the first and last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
