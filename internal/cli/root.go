// Package cli defines the eshop command line: the API server and the
// notification workers.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eshop/internal/config"
	"eshop/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// load reads the configuration and builds the process logger.
func (o *RootOptions) load() (config.Config, *zap.Logger, error) {
	v, err := config.New(o.ConfigFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg := config.Load(v)
	log, err := logger.New(cfg.LogEnv)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// NewRootCommand creates the eshop root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "eshop",
		Short:         "SimpleEshop storefront",
		Long:          "Storefront API with cart and checkout, plus the workers that send welcome and order confirmation emails.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "optional config file (yaml, json, toml or env)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewNotifyCommand(opts))

	return cmd
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
