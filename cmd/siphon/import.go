// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/siphon/internal/config"
	"github.com/tomtom215/siphon/internal/database"
	"github.com/tomtom215/siphon/internal/ingest"
	"github.com/tomtom215/siphon/internal/logging"
	"github.com/tomtom215/siphon/internal/mapper"
	"github.com/tomtom215/siphon/internal/objstore"
)

// timeLayouts are the accepted forms for --after and --before. Values are
// interpreted as UTC.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func newImportCommand() *cobra.Command {
	var (
		fileType    string
		afterStr    string
		beforeStr   string
		cont        bool
		file        string
		bucket      string
		prefix      string
		dbPath      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ingest files into DuckDB",
		Long: `Import discovers ingest files for one file kind, decodes their framed
records, and bulk-loads the mapped rows. Exactly one of --after,
--continue, or --file selects the files; --before can narrow --after or
--continue but not --file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Caller: cfg.Logging.Caller,
			})

			m, ok := mapper.Lookup(fileType)
			if !ok {
				return fmt.Errorf("unknown file type %q, available: %s",
					fileType, strings.Join(mapper.Kinds(), ", "))
			}

			sel := ingest.Selection{Continue: cont, File: file}
			if sel.After, err = parseTimeFlag("after", afterStr); err != nil {
				return err
			}
			if sel.Before, err = parseTimeFlag("before", beforeStr); err != nil {
				return err
			}
			// Flag conflicts must fail before any I/O.
			if err := sel.Validate(); err != nil {
				return err
			}

			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if concurrency > 0 {
				cfg.Import.Concurrency = concurrency
			}

			db, err := database.New(database.Config{
				Path:      cfg.Database.Path,
				MaxMemory: cfg.Database.MaxMemory,
				Threads:   cfg.Database.Threads,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					logging.Warn().Err(err).Msg("Error closing database")
				}
			}()

			api, err := objstore.NewClient(objstore.ClientConfig{
				Region:         cfg.S3.Region,
				Endpoint:       cfg.S3.Endpoint,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				return err
			}

			var opts []objstore.Option
			if b := firstNonEmpty(bucket, cfg.S3.Bucket); b != "" {
				opts = append(opts, objstore.WithBucket(b))
			}
			if p := firstNonEmpty(prefix, cfg.S3.Prefix); p != "" {
				opts = append(opts, objstore.WithPrefix(p))
			}
			store := objstore.NewStore(api, opts...)

			sched := ingest.New(store, db, ingest.WithConcurrency(cfg.Import.Concurrency))
			return sched.Run(cmd.Context(), m, sel)
		},
	}

	cmd.Flags().StringVar(&fileType, "file-type", "", "file kind to import (see list-types)")
	cmd.Flags().StringVar(&afterStr, "after", "", "only import files newer than this UTC time")
	cmd.Flags().StringVar(&beforeStr, "before", "", "only import files at or older than this UTC time")
	cmd.Flags().BoolVar(&cont, "continue", false, "resume from the last imported file")
	cmd.Flags().StringVar(&file, "file", "", "import a single object key, bypassing listing")
	cmd.Flags().StringVar(&bucket, "bucket", "", "override the file kind's default bucket")
	cmd.Flags().StringVar(&prefix, "prefix", "", "override the file kind's default key prefix")
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database file path")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files to process in parallel")

	_ = cmd.MarkFlagRequired("file-type")

	return cmd
}

func newListTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-types",
		Short: "List supported file types",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range mapper.Kinds() {
				m, _ := mapper.Lookup(kind)
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s s3://%s/%s\n", kind, m.Bucket(), m.Prefix())
			}
			return nil
		},
	}
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s value %q, expected YYYY-MM-DD[THH:MM:SS]", name, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
