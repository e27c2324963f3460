// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/internal/prisma"
	"github.com/pdiddy/litreview/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Human-in-the-loop PDF acquisition (list, ingest, fetch, stats)",
	Long: `Acquire coordinates PDF acquisition for papers in awaiting_pdf.

  1. "acquire list" writes the papers that need a PDF, each with the
     filename its download should be saved under.
  2. Download the PDFs by hand (or "acquire fetch" the open-access ones)
     into the PDF directory.
  3. "acquire ingest" matches the files back to their papers and moves
     them to pdf_acquired.`,
}

// --- list subcommand ---

var acquireListCmd = &cobra.Command{
	Use:   "list",
	Short: "Export the papers awaiting a PDF",
	RunE:  runAcquireList,
}

func runAcquireList(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.Acquisition.ListPath
	}
	format := cfg.Acquisition.ListFormat
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = types.ListFormat(f)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := acquire.GenerateList(cmd.Context(), st, output, format)
	if err != nil {
		return err
	}
	metrics.AcquisitionListPapers.Set(float64(n))

	w := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintln(w, "No papers awaiting PDF acquisition.")
		return nil
	}
	fmt.Fprintf(w, "%d paper(s) need PDFs; list written to %s\n", n, output)
	fmt.Fprintf(w, "Save each PDF into %s under its suggested_filename, then run: litreview acquire ingest\n",
		cfg.Acquisition.PDFDir)
	return nil
}

// --- ingest subcommand ---

var acquireIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Match downloaded PDFs to papers and mark them acquired",
	Long: `Ingest scans the PDF directory (not recursively) and matches each file
to a paper by its name: a DOI with "/" replaced by "_", "paper_<id>", or
the exact paper id. Matched papers in awaiting_pdf move to pdf_acquired
with the file's absolute path. Unmatched files are listed for renaming.`,
	RunE: runAcquireIngest,
}

func runAcquireIngest(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Acquisition.PDFDir
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ing := acquire.NewIngester(st, cfg.Acquisition, logger, metrics)
	result := ing.Ingest(cmd.Context(), dir)
	acquire.WriteReport(cmd.OutOrStdout(), result)
	if result.HasErrors() {
		return fmt.Errorf("%d file(s) failed ingestion", result.Errors)
	}
	return nil
}

// --- fetch subcommand ---

var acquireFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download open-access PDFs for papers awaiting a PDF",
	Long: `Fetch downloads the PDF of every awaiting_pdf paper with a known pdf_url
(or an open-access copy found through OpenAlex) into the PDF directory
under its suggested filename. Existing files are skipped. The store is
not changed; pass --ingest to run an ingestion pass afterwards.`,
	RunE: runAcquireFetch,
}

func runAcquireFetch(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Acquisition.PDFDir
	}
	runIngest, _ := cmd.Flags().GetBool("ingest")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	fetcher := acquire.NewFetcher(nil, cfg.Acquisition, logger, metrics)
	fetched, err := fetcher.Fetch(cmd.Context(), st, dir, w)
	if err != nil {
		return err
	}

	if runIngest {
		fmt.Fprintln(w)
		ing := acquire.NewIngester(st, cfg.Acquisition, logger, metrics)
		result := ing.Ingest(cmd.Context(), dir)
		acquire.WriteReport(w, result)
		if result.HasErrors() {
			return fmt.Errorf("%d file(s) failed ingestion", result.Errors)
		}
	}
	if fetched.HasFailures() {
		return fmt.Errorf("%d download(s) failed", fetched.Failed)
	}
	return nil
}

// --- stats subcommand ---

var acquireStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show acquisition progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := prisma.AcquisitionStats(cmd.Context(), st)
		if err != nil {
			return err
		}
		abs, _ := filepath.Abs(cfg.Acquisition.PDFDir)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Awaiting PDF:    %d\n", s.AwaitingPDF)
		fmt.Fprintf(w, "PDF acquired:    %d\n", s.PDFAcquired)
		fmt.Fprintf(w, "Text extracted:  %d\n", s.TextExtracted)
		fmt.Fprintf(w, "PDF directory:   %s\n", abs)
		return nil
	},
}

func init() {
	acquireListCmd.Flags().String("output", "", "output path (default acquisition.list_path)")
	acquireListCmd.Flags().String("format", "", "csv, yaml, or json (default acquisition.list_format)")

	acquireIngestCmd.Flags().String("dir", "", "directory to scan (default acquisition.pdf_dir)")

	acquireFetchCmd.Flags().String("dir", "", "download directory (default acquisition.pdf_dir)")
	acquireFetchCmd.Flags().Bool("ingest", false, "run an ingestion pass after downloading")

	acquireCmd.AddCommand(acquireListCmd, acquireIngestCmd, acquireFetchCmd, acquireStatsCmd)
	rootCmd.AddCommand(acquireCmd)
}
