package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/beetlebugorg/benchmap/internal/config"
	"github.com/beetlebugorg/benchmap/internal/logger"
)

var (
	cfgPath   string
	envFile   string
	logLevel  string
	packsDir  string
	stateList []string

	cfg config.Config
	log *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "benchmap",
	Short: "Survey benchmark map tools",
	Long: `benchmap loads state benchmark packs and drives the viewport
synchronization engine against a console render surface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "conf", "c", "", "config file (default $XDG_CONFIG_HOME/benchmap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with BENCHMAP_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&packsDir, "packs", "p", "", "directory holding state packs")
	rootCmd.PersistentFlags().StringSliceVarP(&stateList, "states", "s", nil, "enabled state codes (default all)")
}

// setup loads configuration and the logger for every subcommand.
func setup(cmd *cobra.Command) error {
	if envFile != "" {
		config.LoadDotEnv(envFile)
	}

	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFrom(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if packsDir != "" {
		cfg.Data.PacksDir = packsDir
	}
	if len(stateList) > 0 {
		cfg.Data.States = stateList
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = logger.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
