//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Acquire groups the PDF acquisition round trip.
type Acquire mg.Namespace

// List writes the acquisition list of papers awaiting a PDF.
func (Acquire) List() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "acquire", "list")
}

// Ingest matches downloaded PDFs back to their papers.
func (Acquire) Ingest() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "acquire", "ingest")
}

// Stats prints acquisition progress.
func (Acquire) Stats() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "acquire", "stats")
}

// Report writes the PRISMA flow report into report.output_dir.
func Report() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "report", "--format", "markdown", "--save")
}
