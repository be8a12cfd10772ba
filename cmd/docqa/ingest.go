package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/keys"
)

func newIngestCmd(c *cli) *cobra.Command {
	var cmsPath string
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Extract, embed and store documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmsPath == "" {
				return errors.New("nothing to ingest: pass files or --cms")
			}
			a, closeApp, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := a.Ingester.IngestFile(cmd.Context(), filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printResult(out, res)
			}
			if cmsPath != "" {
				data, err := os.ReadFile(cmsPath)
				if err != nil {
					return err
				}
				res, err := a.Ingester.IngestCMS(cmd.Context(), data)
				if err != nil {
					return fmt.Errorf("cms %s: %w", cmsPath, err)
				}
				printResult(out, res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cmsPath, "cms", "", "Ingest a CMS JSON document as the \"cms\" source")
	return cmd
}

func printResult(w io.Writer, res ingest.Result) {
	fmt.Fprintf(w, "%s: stored %d of %d pairs (replaced %d)\n", res.Source, res.Stored, res.Pairs, res.Deleted)
}

func newExtractCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the pairs a file yields without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := keys.LoadTable(c.cfg.Aliases.File)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			orch := ingest.New(extract.New(table), nil, nil, nil, ingest.Options{Logger: c.logger})
			src, pairs, err := orch.Extract(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Source ingest.Source  `json:"source"`
					Pairs  []extract.Pair `json:"pairs"`
				}{src, pairs})
			}

			fmt.Fprintf(out, "%s (%s): %d pairs\n", src.ID, src.FileType, len(pairs))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tKEY\tRAW KEY\tVALUE")
			for _, p := range pairs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Sequence, p.CanonicalKey, p.RawKey, oneLine(p.Value, 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output pairs as JSON")
	return cmd
}

func newNormalizeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <label...>",
		Short: "Show the canonical key and lookup candidates for a label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := keys.LoadTable(c.cfg.Aliases.File)
			if err != nil {
				return err
			}
			label := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "canonical:  %s\n", table.Normalize(label))
			candidates := table.Candidates(label)
			if len(candidates) == 0 {
				fmt.Fprintln(out, "candidates: none (semantic search)")
				return nil
			}
			fmt.Fprintf(out, "candidates: %s\n", strings.Join(candidates, ", "))
			return nil
		},
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
