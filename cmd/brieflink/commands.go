package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/brieflink/backfill"
	"github.com/poiesic/brieflink/ingestion"
	"github.com/poiesic/brieflink/retry"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage/postgres"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Extract, link, segment and embed briefs from a document tree",
		ArgsUsage: "[file ...]",
		Action:    ingestAction,
		Flags: append(sourceFlags(),
			&cli.IntSliceFlag{
				Name:  "year",
				Usage: "Only ingest briefs filed under these years",
			},
			&cli.StringSliceFlag{
				Name:  "case-folder",
				Usage: "Only ingest briefs under these case folders",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-ingest files whose content has not changed",
			},
			&cli.BoolFlag{
				Name:  "strict-suffix",
				Usage: "Leave briefs unlinked when their filename id is a suffix of several cases",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Forget all ingestion checkpoints before the run",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of files processed concurrently",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  "chain",
				Usage: "Chain every case after ingestion",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts for failed embedding and analysis calls",
				Value: retry.DefaultPolicy.MaxAttempts,
			},
		),
	}
}

// sourceFlags select and configure the document tree a command reads.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Document tree backend (local, s3)",
			Value: string(source.TypeLocal),
		},
		&cli.StringFlag{
			Name:  "root",
			Usage: "Root of a local document tree",
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "S3 bucket holding the document tree",
			EnvVars: []string{"AWS_S3_BUCKET"},
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Key prefix of the document tree within the bucket",
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region of the bucket",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.StringFlag{
			Name:    "aws-access-key-id",
			Usage:   "Static AWS access key (defaults to the SDK credential chain)",
			EnvVars: []string{"AWS_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "aws-secret-access-key",
			Usage:   "Static AWS secret key",
			EnvVars: []string{"AWS_SECRET_ACCESS_KEY"},
		},
	}
}

func openSource(c *cli.Context, opts ...source.Option) (source.Source, error) {
	src, err := source.New(c.Context, source.Config{
		Type:         source.Type(c.String("source")),
		LocalPath:    c.String("root"),
		S3Bucket:     c.String("bucket"),
		S3Prefix:     c.String("prefix"),
		S3Region:     c.String("region"),
		AWSAccessKey: c.String("aws-access-key-id"),
		AWSSecretKey: c.String("aws-secret-access-key"),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	return src, nil
}

func ingestAction(c *cli.Context) error {
	if c.Int("workers") <= 0 {
		return errors.New("workers must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	src, err := openSource(c, source.WithYears(c.IntSlice("year")...), source.WithCaseFolders(c.StringSlice("case-folder")...))
	if err != nil {
		return err
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("reset") {
		if err := db.ResetCheckpoints(c.Context); err != nil {
			return fmt.Errorf("failed to reset checkpoints: %w", err)
		}
	}

	policy := retry.DefaultPolicy
	policy.MaxAttempts = c.Int("max-retries")
	pipeline, err := db.NewIngestionPipeline(src,
		ingestion.WithPoolSize(c.Int("workers")),
		ingestion.WithForce(c.Bool("force")),
		ingestion.WithRetryPolicy(policy),
		ingestion.WithRejectAmbiguousSuffix(c.Bool("strict-suffix")),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	var summary *ingestion.Summary
	if c.NArg() > 0 {
		summary, err = pipeline.IngestBatch(c.Context, c.Args().Slice())
	} else {
		summary, err = pipeline.IngestSource(c.Context)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printSummary(c.App.Writer, summary)

	if c.Bool("chain") {
		reports, err := db.ChainAll(c.Context)
		linked := 0
		for _, r := range reports {
			linked += r.Linked
		}
		fmt.Fprintf(c.App.Writer, "Chained %d cases, %d back-references set\n", len(reports), linked)
		if err != nil {
			return fmt.Errorf("chaining failed: %w", err)
		}
	}

	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", summary.Failed, summary.Total), 1)
	}
	return nil
}

func printSummary(w io.Writer, s *ingestion.Summary) {
	fmt.Fprintf(w, "Run %s finished in %v\n", s.RunID, s.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  files:     %d\n", s.Total)
	fmt.Fprintf(w, "  completed: %d\n", s.Completed)
	fmt.Fprintf(w, "  partial:   %d\n", s.Partial)
	fmt.Fprintf(w, "  failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "  skipped:   %d\n", s.Skipped)
	fmt.Fprintf(w, "  linked:    %d\n", s.Linked)
	if len(s.FailedFiles) == 0 {
		return
	}
	fmt.Fprintln(w, "Failed files:")
	for _, f := range s.FailedFiles {
		fmt.Fprintf(w, "  %s [%s]: %s\n", f.SourceFile, f.Stage, f.Error)
	}
}

func chainCommand() *cli.Command {
	return &cli.Command{
		Name:      "chain",
		Usage:     "Link responsive briefs to the briefs they answer",
		ArgsUsage: "[case key ...]",
		Action: func(c *cli.Context) error {
			db, err := openDatabase(c, false)
			if err != nil {
				return err
			}
			defer db.Close()

			if c.NArg() == 0 {
				reports, err := db.ChainAll(c.Context)
				for _, r := range reports {
					printChainReport(c.App.Writer, r.CaseKey, r.Linked, r.AlreadyLinked, r.Pending)
				}
				return err
			}
			for _, arg := range c.Args().Slice() {
				key, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid case key %q: %w", arg, err)
				}
				r, err := db.ChainCase(c.Context, key)
				if err != nil {
					return err
				}
				printChainReport(c.App.Writer, r.CaseKey, r.Linked, r.AlreadyLinked, r.Pending)
			}
			return nil
		},
	}
}

func printChainReport(w io.Writer, caseKey int64, linked, already, pending int) {
	fmt.Fprintf(w, "case %d: linked %d, already linked %d, pending %d\n", caseKey, linked, already, pending)
}

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:   "backfill",
		Usage:  "Embed rows left without vectors and promote completed briefs",
		Action: backfillAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of rows to embed in each batch",
				Value: backfill.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N rows",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for failed operations",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
		},
	}
}

func backfillAction(c *cli.Context) error {
	config := backfill.DefaultConfig()
	config.BatchSize = c.Int("batch-size")
	config.ReportInterval = c.Int("report-interval")
	config.Policy.MaxAttempts = c.Int("max-retries")
	config.Policy.BaseDelay = c.Duration("retry-delay")

	if config.BatchSize <= 0 {
		return errors.New("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return errors.New("report-interval must be greater than 0")
	}
	if config.Policy.MaxAttempts <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := db.NewBackfiller(config, c.App.ErrWriter)
	if err != nil {
		return err
	}
	if _, err := b.Run(c.Context); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending PostgreSQL schema migrations",
		Action: func(c *cli.Context) error {
			dsn := c.String("database-url")
			if dsn == "" {
				return errors.New("database-url is required")
			}
			if err := postgres.Migrate(dsn); err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}
