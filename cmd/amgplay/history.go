package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/amgplay/internal/history"
	"github.com/ManuGH/amgplay/internal/persistence/sqlite"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently played and downloaded tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
				return err
			}
			store, err := history.NewStore(cfg.History.Backend, cfg.DataDir)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history yet")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"When", "Outcome", "Track", "Title"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.At.Local().Format(time.DateTime), e.Outcome, e.TrackID, e.Title})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of entries to show")
	cmd.AddCommand(newHistoryVerifyCmd(root))
	return cmd
}

func newHistoryVerifyCmd(root *rootOptions) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the history database for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.DataDir, history.DBFileName)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("history database: %w", err)
			}
			rep, err := sqlite.Verify(cmd.Context(), path, full)
			if err != nil {
				return err
			}
			if !rep.Healthy() {
				for _, p := range rep.Problems {
					fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("history database is corrupt")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (schema v%d)\n", path, rep.SchemaVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "run a full integrity check instead of a quick one")
	return cmd
}
