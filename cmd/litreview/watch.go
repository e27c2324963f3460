// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest PDFs as they are saved into the PDF directory",
	Long: `Watch runs an ingestion pass, then another each time new PDFs settle in
the PDF directory (after watch.debounce of quiet). Stop it with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	acq := cfg.Acquisition
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		acq.PDFDir = dir
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ing := acquire.NewIngester(st, acq, logger, metrics)
	w := watch.New(ing, acq, cfg.Watch.Debounce, logger)
	out := cmd.OutOrStdout()
	return w.Run(ctx, func(r acquire.IngestResult) {
		if r.Total() > 0 {
			acquire.WriteReport(out, r)
		}
	})
}

func init() {
	watchCmd.Flags().String("dir", "", "directory to watch (default acquisition.pdf_dir)")
	rootCmd.AddCommand(watchCmd)
}
