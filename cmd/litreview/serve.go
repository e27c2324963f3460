// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the paper database and PRISMA statistics over HTTP",
	Long: `Serve starts a JSON HTTP API over the paper store:

  GET  /healthz               store reachability
  GET  /papers?status=        papers, optionally filtered by status
  GET  /papers/{id}           one paper
  GET  /flow?format=          PRISMA flow statistics
  GET  /acquisition/list      papers awaiting a PDF
  GET  /acquisition/stats     acquisition progress
  POST /acquisition/ingest    run one ingestion pass over the PDF directory
  GET  /metrics               Prometheus metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		cfg.Server.Address = addr
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ing := acquire.NewIngester(st, cfg.Acquisition, logger, metrics)
	srv := server.New(cfg.Server, st, ing, cfg.Acquisition.PDFDir, registry, logger)
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (default server.address)")
	rootCmd.AddCommand(serveCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
