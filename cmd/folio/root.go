package main

import (
	"fmt"
	"os"

	"github.com/aretw0/folio/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio is a structural editor for block documents",
	Long: `Folio edits documents made of typed nodes and named slots through invertible commands.
Documents are plain JSON or YAML files; the serve and mcp commands expose a shared store
of documents over HTTP and the Model Context Protocol.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("store", "", "Document store: memory, file or redis")
	rootCmd.PersistentFlags().String("store-path", "", "Directory of the file store")
	rootCmd.PersistentFlags().String("redis-addr", "", "Address of the redis store")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("store") {
		cfg.Store.Driver, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		cfg.Store.Path, _ = flags.GetString("store-path")
	}
	if flags.Changed("redis-addr") {
		cfg.Store.Redis.Addr, _ = flags.GetString("redis-addr")
	}
	return cfg, cfg.Validate()
}
