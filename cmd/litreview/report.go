// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/prisma"
	"github.com/pdiddy/litreview/pkg/types"
)

const reportBaseName = "prisma_flow_diagram"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render PRISMA 2020 flow statistics",
	Long: `Report computes PRISMA 2020 flow statistics (identification, screening,
eligibility, included) from the paper database and renders them as text,
markdown, csv, or yaml. Output goes to stdout unless --output is given;
--save writes to report.output_dir instead.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	f, _ := cmd.Flags().GetString("format")
	format := types.ReportFormat(f)
	output, _ := cmd.Flags().GetString("output")
	if save, _ := cmd.Flags().GetBool("save"); save && output == "" {
		output = filepath.Join(cfg.Report.OutputDir, reportBaseName+prisma.Extension(format))
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := prisma.Load(cmd.Context(), st)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := prisma.Render(&buf, stats, format); err != nil {
		return err
	}
	if output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(output), err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "PRISMA flow report written to %s\n", output)
	return nil
}

func init() {
	reportCmd.Flags().String("format", string(types.ReportText), "text, markdown, csv, or yaml")
	reportCmd.Flags().String("output", "", "write the report to this file")
	reportCmd.Flags().Bool("save", false, "write the report to report.output_dir")

	rootCmd.AddCommand(reportCmd)
}
