package main

import (
	"fmt"

	"github.com/devraulu/normurl/pkg/process"
	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		base     string
		original bool
	)

	cmd := &cobra.Command{
		Use:   "extract --base URL [file]",
		Short: "Print the canonical outlinks of an HTML document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			res, err := process.ExtractLinks(in, base, a.n)
			if err != nil {
				return fmt.Errorf("couldn't extract links: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, link := range res.Outlinks {
				if original {
					fmt.Fprintf(out, "%s\t%s\n", link.Normalized, link.Original)
					continue
				}
				fmt.Fprintln(out, link.Normalized)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "URL the document was fetched from")
	cmd.Flags().BoolVar(&original, "original", false, "also print the resolved link before normalization")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}
