// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the srchive CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/ap-aditya/srchive/internal/applog"
	"github.com/ap-aditya/srchive/internal/secrets"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, filled in PersistentPreRunE.
	cfg types.Config

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "srchive",
	Short: "Bounded, self-refreshing arXiv corpus with semantic search",
	Long: `srchive maintains a capped corpus of arXiv papers in a vector index and a
metadata store. Classic papers are discovered from curated reading lists and
citation rankings and are never evicted; recent papers are pulled from weekly
submission windows and roll off oldest-first once the corpus exceeds its cap.

Use ingest to refresh the corpus, search or serve to query it, and retain or
repair for maintenance.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c

		logger = applog.Init(applog.Options{LogConfig: cfg.Log})

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", slices.Sorted(maps.Keys(s)))
		}
		return applySecrets(&cfg, s)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./srchive.yaml or ~/.config/srchive/srchive.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().String("store-driver", "", "metadata store driver: sqlite3 or postgres")
	rootCmd.PersistentFlags().String("store-dsn", "", "metadata store path or connection string")
	rootCmd.PersistentFlags().String("vector-path", "", "vector index file (:memory: for an in-process index)")
	rootCmd.PersistentFlags().String("ollama-url", "", "Ollama base URL")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store-driver"))
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("store-dsn"))
	_ = viper.BindPFlag("vector.path", rootCmd.PersistentFlags().Lookup("vector-path"))
	_ = viper.BindPFlag("embedding.url", rootCmd.PersistentFlags().Lookup("ollama-url"))
}

func initConfig() {
	// A missing .env is normal; variables already set in the environment win.
	_ = godotenv.Load()

	if err := setDefaults(viper.GetViper(), types.DefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: could not register config defaults:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("srchive")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "srchive"))
		}
	}

	viper.SetEnvPrefix("SRCHIVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every leaf of def as a viper default so that config
// files and SRCHIVE_* variables can override any key.
func setDefaults(v *viper.Viper, def types.Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding defaults: %w", err)
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, node map[string]any) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			walkDefaults(v, key, child)
			continue
		}
		v.SetDefault(key, val)
	}
}

// applySecrets fills credentials that configuration left empty from the
// secrets directory. A postgres store without a DSN is fatal.
func applySecrets(c *types.Config, s map[string]string) error {
	secrets.Fill(&c.Discovery.SemanticScholarAPIKey, s, secrets.SemanticScholarAPIKey)
	secrets.Fill(&c.Discovery.OpenAlexEmail, s, secrets.OpenAlexEmail)
	secrets.Fill(&c.Redis.URL, s, secrets.RedisURL)

	if c.Store.Driver == store.DriverPostgres && c.Store.DSN == "" {
		dsn, err := secrets.Require(s, secrets.StoreDSN)
		if err != nil {
			return fmt.Errorf("postgres store needs store.dsn, SRCHIVE_STORE_DSN or .secrets/%s: %w",
				secrets.StoreDSN, err)
		}
		c.Store.DSN = dsn
	}
	return nil
}

// loadConfig decodes viper's merged view into a Config.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
