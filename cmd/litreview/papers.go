// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/lifecycle"
	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Manage the paper database (import, list, show, set-status)",
}

// --- import subcommand ---

var papersImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import discovered papers from a YAML file",
	Long: `Import reads a YAML list of papers (or a document with a top-level
"papers" list), validates each record, and inserts it. Papers whose id is
already in the store are skipped. A paper without an id takes its DOI as
id, or a random UUID when it has no DOI either.`,
	Args: cobra.ExactArgs(1),
	RunE: runPapersImport,
}

func runPapersImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	papers, err := store.DecodePapers(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := st.Import(cmd.Context(), papers, time.Now().UTC(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed import", summary.Failed)
	}
	return nil
}

// --- list subcommand ---

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers, optionally filtered by status",
	RunE:  runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var papers []*types.Paper
	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		status, err := lifecycle.Parse(raw)
		if err != nil {
			return err
		}
		papers, err = st.ListByStatus(cmd.Context(), status)
		if err != nil {
			return err
		}
	} else {
		papers, err = st.All(cmd.Context())
		if err != nil {
			return err
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	w := cmd.OutOrStdout()
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return nil
	}
	fmt.Fprintf(w, "%-30s  %-15s  %-4s  %s\n", "ID", "Status", "Year", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, p := range papers {
		fmt.Fprintf(w, "%-30s  %-15s  %-4d  %s\n", truncate(p.ID, 30), p.Status, p.Year, truncate(p.Title, 45))
	}
	fmt.Fprintf(w, "\n%d papers\n", len(papers))
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- show subcommand ---

var papersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one paper as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

// --- set-status subcommand ---

var papersSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Move a paper to another PRISMA status",
	Long: `Set-status applies one legal lifecycle transition. Moving a paper to
screened_out or rejected requires --reason. Use "acquire ingest" to move
papers into pdf_acquired.`,
	Args: cobra.ExactArgs(2),
	RunE: runPapersSetStatus,
}

func runPapersSetStatus(cmd *cobra.Command, args []string) error {
	to, err := lifecycle.Parse(args[1])
	if err != nil {
		return err
	}
	if to == types.StatusPDFAcquired {
		return fmt.Errorf("%w: pdf_acquired is set by acquire ingest", lifecycle.ErrInvalidTransition)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	from := p.Status
	now := time.Now().UTC()

	if lifecycle.IsExcluded(to) {
		reason, _ := cmd.Flags().GetString("reason")
		notes, _ := cmd.Flags().GetString("notes")
		if reason != "" && !slices.Contains(types.ExclusionReasons, types.ExclusionReason(reason)) {
			return fmt.Errorf("unknown exclusion reason %q (known: %v)", reason, types.ExclusionReasons)
		}
		err = lifecycle.Exclude(p, to, types.ExclusionReason(reason), notes, now)
	} else {
		err = lifecycle.Advance(p, to, now)
	}
	if err != nil {
		return err
	}
	if err := st.Save(cmd.Context(), p); err != nil {
		return err
	}
	logger.Info().Str("paper_id", p.ID).Str("from", string(from)).Str("to", string(to)).Msg("status changed")
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", p.ID, from, to)
	return nil
}

// --- delete subcommand ---

var papersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a paper from the database",
	Long: `Delete removes a mistakenly imported paper. Papers that left the review
should be moved to screened_out or rejected instead, so they still count
in the PRISMA flow.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Info().Str("paper_id", args[0]).Msg("paper deleted")
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	papersListCmd.Flags().String("status", "", "only list papers in this status")
	papersListCmd.Flags().Bool("json", false, "output as JSON")

	papersSetStatusCmd.Flags().String("reason", "", "exclusion reason (required for screened_out and rejected)")
	papersSetStatusCmd.Flags().String("notes", "", "exclusion notes")

	papersCmd.AddCommand(papersImportCmd, papersListCmd, papersShowCmd, papersSetStatusCmd, papersDeleteCmd)
	rootCmd.AddCommand(papersCmd)
}
