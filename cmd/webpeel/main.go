// Command webpeel is a thin CLI demonstration of the webpeel library:
// one-shot fetches and checkpoint inspection from a terminal, grounded
// on the cobra command trees in rohmanhakim-docs-crawler and
// 5u5urrus-PathFinder rather than the teacher's own cmd/purify (an HTTP
// server, not a CLI).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/webpeel/config"
	"github.com/use-agent/webpeel/internal/checkpoint"
	"github.com/use-agent/webpeel/internal/distill"
	"github.com/use-agent/webpeel/webpeel"
)

var (
	flagRender      bool
	flagStealth     bool
	flagCloaked     bool
	flagFormat      string
	flagTimeout     time.Duration
	flagScreenshot  string
	flagQuestion    string
	flagNoCache     bool
	flagConcurrency int
	flagJobID       string
)

func main() {
	root := &cobra.Command{
		Use:   "webpeel",
		Short: "Fetch, render, and distill web pages from the command line.",
		Long: `webpeel drives the library's escalation ladder from a terminal:
plain HTTP first, escalating to a headless browser, stealth mode, and a
TLS-fingerprint-spoofed fetch only as each rung reports itself blocked.`,
	}

	root.AddCommand(newFetchCmd())
	root.AddCommand(newFetchManyCmd())
	root.AddCommand(newCheckpointCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "webpeel:", err)
		os.Exit(1)
	}
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch and distill a single URL, printing the result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := webpeel.New(config.Load())
			if err != nil {
				return fmt.Errorf("starting client: %w", err)
			}
			defer client.Close()

			opts := webpeel.Options{
				Render:     flagRender,
				Stealth:    flagStealth,
				Cloaked:    flagCloaked,
				Timeout:    flagTimeout,
				NoCache:    flagNoCache,
				Question:   flagQuestion,
				Format:     distillFormat(flagFormat),
				Screenshot: flagScreenshot != "",
				FullPage:   flagScreenshot == "full",
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout+30*time.Second)
			defer cancel()

			result, err := client.Fetch(ctx, args[0], opts)
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			if flagScreenshot != "" && len(result.Screenshot) > 0 {
				if err := os.WriteFile(flagScreenshot, result.Screenshot, 0o644); err != nil {
					fmt.Fprintln(os.Stderr, "webpeel: writing screenshot:", err)
				}
				result.Screenshot = nil
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&flagRender, "render", false, "force the headless-browser rung instead of starting at plain HTTP")
	cmd.Flags().BoolVar(&flagStealth, "stealth", false, "force the stealth-browser rung")
	cmd.Flags().BoolVar(&flagCloaked, "cloaked", false, "jump straight to the TLS-fingerprint-spoofed rung")
	cmd.Flags().StringVar(&flagFormat, "format", "markdown", "output format: markdown, text, html, or clean")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 20*time.Second, "per-fetch deadline")
	cmd.Flags().StringVar(&flagScreenshot, "screenshot", "", "write a screenshot to this path (\"full\" for full-page capture)")
	cmd.Flags().StringVar(&flagQuestion, "question", "", "filter distilled content to blocks relevant to this question")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the response cache")
	return cmd
}

func newFetchManyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-many <job-id> <url> [url...]",
		Short: "Fetch multiple URLs with bounded concurrency, resuming from a checkpoint if job-id already exists.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := webpeel.New(config.Load())
			if err != nil {
				return fmt.Errorf("starting client: %w", err)
			}
			defer client.Close()

			jobID, urls := args[0], args[1:]
			results := client.FetchMany(cmd.Context(), jobID, urls, flagConcurrency, webpeel.Options{
				Format: distillFormat(flagFormat),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 5, "number of URLs fetched in parallel")
	cmd.Flags().StringVar(&flagFormat, "format", "markdown", "output format: markdown, text, html, or clean")
	return cmd
}

func newCheckpointCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect fetch-many resume state stored under ~/.webpeel/checkpoints.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every checkpoint on disk, most recently updated first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := checkpoint.NewStore("")
			if err != nil {
				return err
			}
			checkpoints, err := store.List()
			if err != nil {
				return err
			}
			for _, cp := range checkpoints {
				fmt.Printf("%s\t%d/%d done\tupdated %s\n",
					cp.JobID, len(cp.Completed)+len(cp.Failed), len(cp.URLs), cp.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <job-id>",
		Short: "Delete a checkpoint file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := checkpoint.NewStore("")
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	}

	parent.AddCommand(list, rm)
	return parent
}

func distillFormat(s string) distill.Format {
	return distill.Format(strings.ToLower(s))
}
