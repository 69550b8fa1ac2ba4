// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package main is the siphon command-line tool.
//
// Siphon incrementally imports gzip-compressed, length-framed binary
// record files from an S3-compatible object store into an embedded DuckDB
// database. It remembers which files it has imported, so repeated runs
// with --continue resume where the last one stopped instead of
// reprocessing.
//
// # Usage
//
// Import every data transfer report newer than a timestamp:
//
//	siphon import --file-type data-transfer-ingest --after 2026-08-01T00:00:00
//
// Resume from the last imported file:
//
//	siphon import --file-type data-transfer-ingest --continue
//
// Import one specific file:
//
//	siphon import --file-type mobile-rewards \
//	    --file mobile_network_reward_shares_v1.1756680000000.gz
//
// # Configuration
//
// Connection settings come from siphon.yaml or SIPHON_-prefixed
// environment variables (see internal/config); the flags below override
// them per invocation. Credentials use the standard AWS chain.
//
// The process exits non-zero on any unrecovered listing, fetch, framing,
// or persistence error. Individual undecodable records are logged to
// stderr and skipped without affecting the exit status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "siphon",
		Short:         "Incremental object storage to DuckDB ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newImportCommand())
	root.AddCommand(newListTypesCommand())

	return root
}
