package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simplyliz/searchd/internal/config"
)

var configShowConfigPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage searchd configuration",
	Long:  "View the effective searchd configuration after defaults, config file, and SEARCHD_* environment overrides are applied.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as JSON",
	RunE:  runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVar(&configShowConfigPath, "config", "", "Path to a searchd config file (YAML or TOML)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	result, err := config.Load(configShowConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Config)
}
