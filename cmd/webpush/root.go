package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinywideclouds/go-webpush/webpush/config"
)

//go:embed local.yaml
var defaultConfig []byte

func newRootCommand(logger *slog.Logger) *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "webpush",
		Short:         "Send Web Push notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (defaults to the embedded local.yaml)")

	configLoader := func() (*config.Config, error) {
		return loadConfig(configFlag, logger)
	}

	rootCmd.AddCommand(newSendCommand(configLoader, logger))
	rootCmd.AddCommand(newKeygenCommand())
	return rootCmd
}

// loadConfig reads the YAML file (or the embedded default) and applies
// environment overrides.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	raw := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		raw = data
	}

	yamlCfg, err := config.ParseYaml(raw)
	if err != nil {
		return nil, err
	}
	baseCfg, err := config.NewConfigFromYaml(yamlCfg, logger)
	if err != nil {
		return nil, err
	}
	return config.UpdateConfigWithEnvOverrides(baseCfg, logger)
}
