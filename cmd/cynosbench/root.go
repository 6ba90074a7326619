package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cynos-db/cynos/internal/config"
)

var (
	configPath string
	engineCfg  config.EngineConfig
)

var rootCmd = &cobra.Command{
	Use:   "cynosbench",
	Short: "cynosbench - exercise a cynos engine.Database",
	Long: `cynosbench builds a fixed demo schema (employees, departments, orders)
and drives it through a cynos engine.Database: inserts, one-shot queries,
explain dumps and incrementally maintained materialized views.

Examples:
  cynosbench bench --inserts 10000
  cynosbench explain
  cynosbench view`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		engineCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cynos.yaml", "Path to an engine config file (missing file uses defaults)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(viewCmd)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
