package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/engine"
	"github.com/hazyhaar/feedhider/htmldoc"
	"github.com/hazyhaar/feedhider/kvstore"
)

func newFilterCmd(g *globals) *cobra.Command {
	var (
		output string
		blocks []string
	)
	cmd := &cobra.Command{
		Use:   "filter <page.html | ->",
		Short: "Hide blocked items in a saved page and write the result",
		Long: `Runs one reconciliation pass over a saved HTML page. Blocked items get an
inline display:none and the data-feedhider-hidden marker, so running
filter again on its own output changes nothing.

With --block the given names are used instead of the configuration store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			logger := g.logger()

			var store kvstore.Store
			if len(blocks) > 0 {
				store, err = seededStore(cmd, cfg.Namespace, blocks)
			} else {
				store, err = g.openStore(cfg, logger)
			}
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			eng := engine.New(cfg, doc, doc.Tagger(), store, engine.WithLogger(logger))
			defer eng.Close()
			rep := eng.Reconcile(cmd.Context(), engine.TriggerManual)
			logger.Info("feedhider: filter complete",
				"enabled", rep.Enabled,
				"entries", rep.Entries,
				"scanned", rep.Scanned,
				"hidden", rep.Hidden,
				"restored", rep.Restored)

			if err := writeDocument(cmd, output, doc); err != nil {
				return err
			}
			return rep.Err()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringArrayVar(&blocks, "block", nil, "channel name to block (repeatable, bypasses the store)")
	return cmd
}

func writeDocument(cmd *cobra.Command, path string, doc *htmldoc.Document) error {
	if path == "" || path == "-" {
		return doc.Render(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return renderAndClose(doc, f)
}

// renderAndClose renders doc into w and returns the close error as well.
func renderAndClose(doc *htmldoc.Document, w io.WriteCloser) error {
	if err := doc.Render(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func readDocument(cmd *cobra.Command, path string) (*htmldoc.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		defer f.Close()
		r = f
	}
	return htmldoc.Parse(r)
}

func seededStore(cmd *cobra.Command, namespace string, names []string) (kvstore.Store, error) {
	store := kvstore.NewMemory()
	list := make(blocklist.List, 0, len(names))
	for _, n := range names {
		list = append(list, blocklist.Entry{Name: n})
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	err = store.Set(cmd.Context(), namespace, map[string]json.RawMessage{blocklist.KeyList: raw})
	return store, err
}
