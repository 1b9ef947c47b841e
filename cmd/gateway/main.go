package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(newViper())
}

func buildRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Account service behind a pooled TCP accept loop with tiered rate limits",
		Long: `gateway aceita conexões TCP, distribui entre workers em round-robin e
atende as rotas de contas (/users, /login) com limites de taxa por tier.

Sem subcomando, equivale a "gateway serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "optional config file (yaml, toml or json) with the same keys as the environment")
	flags.String("listen-addr", ":8080", "address the gateway listens on")
	flags.String("database-url", "", "database url (postgres://, mysql://, sqlite://)")
	flags.Int("workers", 2, "number of workers")
	flags.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (empty disables it)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("LISTEN_ADDR", flags.Lookup("listen-addr"))
	_ = v.BindPFlag("DATABASE_URL", flags.Lookup("database-url"))
	_ = v.BindPFlag("WORKER_NUM", flags.Lookup("workers"))
	_ = v.BindPFlag("METRICS_ADDR", flags.Lookup("metrics-addr"))
	_ = v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	cmd.AddCommand(newServeCmd(v), newMigrateCmd(v))
	return cmd
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Create the users table if needed and run the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), v)
		},
	}
}

func loadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
