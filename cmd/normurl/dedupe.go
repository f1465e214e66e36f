package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devraulu/normurl/pkg/dedup"
	"github.com/devraulu/normurl/pkg/storage"
	"github.com/spf13/cobra"
)

func newDedupeCmd(a *app) *cobra.Command {
	var (
		store     bool
		withCount bool
		byHost    bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe [file]",
		Short: "Print each canonical URL once",
		Long: `Read one URL per line from file (or stdin) and print the canonical form
of the first occurrence of each. With --store the canonical URLs are also
recorded in the Postgres registry configured by dsn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			set := dedup.NewSet(a.n)
			if _, err := dedup.LoadLines(in, set); err != nil {
				return err
			}

			if store {
				if err := a.record(cmd, set.Entries()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if byHost {
				for _, host := range set.Hosts() {
					fmt.Fprintf(out, "%s\n", host)
					for _, u := range set.Bucket(host) {
						fmt.Fprintf(out, "\t%s\n", u)
					}
				}
				return nil
			}

			for _, e := range set.Entries() {
				if withCount {
					fmt.Fprintf(out, "%d\t%s\n", e.SeenCount, e.Normalized)
					continue
				}
				fmt.Fprintln(out, e.Normalized)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&store, "store", false, "record canonical URLs in the registry")
	cmd.Flags().BoolVar(&withCount, "count", false, "prefix each URL with how often it was seen")
	cmd.Flags().BoolVar(&byHost, "by-host", false, "group output by host")
	return cmd
}

func (a *app) record(cmd *cobra.Command, entries []dedup.Entry) error {
	if a.cfg.DSN == "" {
		return errors.New("--store needs dsn in the config file")
	}

	s, err := storage.Open(cmd.Context(), a.cfg.DSN)
	if err != nil {
		return err
	}
	defer s.Close()

	now := time.Now()
	added := 0
	for _, e := range entries {
		isNew, err := s.SaveURL(cmd.Context(), storage.Record{
			Original:   e.Original,
			Normalized: e.Normalized,
			Host:       e.Host,
			SeenAt:     now,
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", e.Normalized, err)
		}
		if isNew {
			added++
		}
	}

	slog.Info("recorded urls", slog.Int("total", len(entries)), slog.Int("new", added))
	return nil
}
