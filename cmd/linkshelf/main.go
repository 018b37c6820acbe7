// Package main provides the linkshelf CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkshelf/internal/app"
	"github.com/MrSnakeDoc/linkshelf/internal/config"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

var (
	// envFiles is set by the --env-file flag.
	envFiles []string

	// application is built by PersistentPreRunE for every command but version.
	application *app.App
	log         logger.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkshelf",
	Short: "linkshelf keeps a local, always-available copy of your saved links",
	Long: `linkshelf syncs saved links with a remote link service, mirrors them in a
local cache so they stay readable offline, and serves them over a small
HTTP API, a feed and Prometheus metrics.

Configuration comes from LINKSHELF_* environment variables, optionally
loaded from .env files.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// execute runs the command tree and releases the application afterwards.
// cobra skips post-run hooks when a command fails, so this is done here.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading LINKSHELF_* variables")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(linksCmd)
}

// setup loads the configuration and builds the application.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log = logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := app.Build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	application = a
	return nil
}

func teardown() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	_ = log.Sync()
	return err
}

// loadConfig turns the panics of config.Load into an error for the CLI.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return config.Load(), nil
}
