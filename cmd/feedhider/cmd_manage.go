package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedhider/blocklist"
)

// withManager opens the store and hands a Manager to fn.
func (g *globals) withManager(fn func(*blocklist.Manager) error) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	store, err := g.openStore(cfg, g.logger())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(blocklist.NewManager(store, blocklist.WithManagerNamespace(cfg.Namespace)))
}

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show blocked channels, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withManager(func(m *blocklist.Manager) error {
				ctx := cmd.Context()
				enabled, err := m.Enabled(ctx)
				if err != nil {
					return err
				}
				list, err := m.List(ctx)
				if err != nil {
					return err
				}

				state := "enabled"
				if !enabled {
					state = "disabled"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "blocking %s, %d channel(s)\n", state, len(list))

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, e := range list {
					fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.DateAdded.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
}

func newAddCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "add <channel name>...",
		Short: "Block one or more channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withManager(func(m *blocklist.Manager) error {
				for _, name := range args {
					e, err := m.Add(cmd.Context(), name)
					if err != nil {
						return fmt.Errorf("add %q: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", e.Name)
				}
				return nil
			})
		},
	}
}

func newRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <channel name>...",
		Aliases: []string{"rm"},
		Short:   "Unblock channels (exact name)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withManager(func(m *blocklist.Manager) error {
				for _, name := range args {
					if err := m.Remove(cmd.Context(), name); err != nil {
						return fmt.Errorf("remove %q: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "unblocked %s\n", name)
				}
				return nil
			})
		},
	}
}

func newEnableCmd(g *globals, enabled bool) *cobra.Command {
	use, short := "enable", "Turn blocking on"
	if !enabled {
		use, short = "disable", "Turn blocking off and reveal hidden items"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withManager(func(m *blocklist.Manager) error {
				if err := m.SetEnabled(cmd.Context(), enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "blocking %sd\n", use)
				return nil
			})
		},
	}
}
