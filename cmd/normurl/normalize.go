package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devraulu/normurl/pkg/batch"
	"github.com/spf13/cobra"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "normalize [url...]",
		Short: "Print the canonical form of each URL",
		Long: `Print the canonical form of each URL given as an argument, or of each
line read from stdin when no arguments are given. Output keeps input order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args
			if len(inputs) == 0 {
				var err error
				inputs, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			r := &batch.Runner{Normalizer: a.n, Workers: a.cfg.Batch.Workers}
			results, stats := r.Run(cmd.Context(), inputs)

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for _, res := range results {
				if asJSON {
					line := map[string]string{"input": res.Input, "normalized": res.Normalized}
					if res.Error != nil {
						line["error"] = res.Error.Error()
					}
					if err := enc.Encode(line); err != nil {
						return err
					}
					continue
				}
				if res.Error != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Input, res.Error)
					continue
				}
				fmt.Fprintln(out, res.Normalized)
			}

			if stats.Errored > 0 {
				return fmt.Errorf("%d of %d urls failed to normalize", stats.Errored, len(inputs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per input")
	return cmd
}

// readLines returns the non-blank, non-comment lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// openInput returns the named file, or stdin when args is empty or "-".
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}
