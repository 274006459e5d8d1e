// CLAUDE:SUMMARY CLI entry point for feedhider: live filtering daemon, offline HTML filter, blocklist management and MCP stdio server.
// Command feedhider hides feed items from blocked channels.
//
// Usage:
//
//	feedhider run -config feedhider.yaml      # filter a live browser tab, serve the management API
//	feedhider filter page.html -o clean.html  # filter a saved page
//	feedhider add "Some Channel"              # manage the blocklist
//	feedhider list | remove | enable | disable
//	feedhider mcp                             # MCP tools over stdio
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedhider/engine"
	"github.com/hazyhaar/feedhider/kvstore"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	storePath  string
	driver     string
	namespace  string

	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:          "feedhider",
		Short:        "Hide feed items from blocked channels",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to feedhider.yaml")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&g.storePath, "store", "", "configuration store path (overrides the config file)")
	pf.StringVar(&g.driver, "driver", "", "configuration store driver: sqlite, file, memory")
	pf.StringVar(&g.namespace, "namespace", "", "configuration namespace")

	root.AddCommand(
		newRunCmd(g),
		newFilterCmd(g),
		newListCmd(g),
		newAddCmd(g),
		newRemoveCmd(g),
		newEnableCmd(g, true),
		newEnableCmd(g, false),
		newMCPCmd(g),
	)
	return root
}

func (g *globals) logger() *slog.Logger {
	var level slog.Level
	switch g.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(g.stderr, &slog.HandlerOptions{Level: level}))
}

// config loads the config file when one is given and applies the flag
// overrides on top.
func (g *globals) config() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if g.configPath != "" {
		var err error
		if cfg, err = engine.LoadConfigFile(g.configPath); err != nil {
			return engine.Config{}, err
		}
	}
	if g.storePath != "" {
		cfg.Store.Path = g.storePath
	}
	if g.driver != "" {
		cfg.Store.Driver = g.driver
	}
	if g.namespace != "" {
		cfg.Namespace = g.namespace
	}
	return cfg, nil
}

func (g *globals) openStore(cfg engine.Config, logger *slog.Logger) (kvstore.Store, error) {
	store, err := kvstore.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
