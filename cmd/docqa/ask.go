package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/resolve"
	"github.com/efebarandurmaz/docqa/internal/tui"
)

func newAskCmd(c *cli) *cobra.Command {
	var (
		source string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <query...>",
		Short: "Answer one question from the stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			query := strings.Join(args, " ")
			var ans resolve.Answer
			if source != "" {
				ans, err = a.Resolver.ResolveIn(cmd.Context(), query, source)
			} else {
				ans, err = a.Resolver.Resolve(cmd.Context(), query)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(ans)
			}
			fmt.Fprintln(out, ans.Text)
			if ans.Source != "" {
				fmt.Fprintf(out, "(%s, %s)\n", ans.Source, ans.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Answer from this source only, then all sources")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the answer as JSON")
	return cmd
}

func newChatCmd(c *cli) *cobra.Command {
	var (
		files      []string
		transcript string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive conversation over the documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			var loaded []ingest.Result
			for _, path := range files {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := a.Ingester.IngestFile(cmd.Context(), filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				loaded = append(loaded, res)
			}

			session, err := tui.RunChat(cmd.Context(), a.Resolver, tui.NewSession(loaded), c.cfg.Server.RequestTimeout)
			if err != nil {
				return err
			}
			if transcript != "" {
				if err := tui.SaveTranscript(session, transcript); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", transcript)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "Ingest these files before the chat opens")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Write the conversation as JSON to this path")
	return cmd
}
