package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/opinion"
)

// caseFile is the YAML layout accepted by "cases import".
//
//	cases:
//	  - key: 934
//	    file_id: 83895-4-I
//	    court: Division I
//	    winner_legal_role: respondent
type caseFile struct {
	Cases []caseEntry `yaml:"cases"`
}

type caseEntry struct {
	Key                int64  `yaml:"key"`
	FileID             string `yaml:"file_id"`
	Title              string `yaml:"title"`
	Court              string `yaml:"court"`
	WinnerLegalRole    string `yaml:"winner_legal_role"`
	WinnerPersonalRole string `yaml:"winner_personal_role"`
	AppealOutcome      string `yaml:"appeal_outcome"`
}

func parseCases(data []byte) ([]*core.Case, error) {
	var f caseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse case file: %w", err)
	}

	seen := make(map[int64]bool, len(f.Cases))
	cases := make([]*core.Case, 0, len(f.Cases))
	for i, e := range f.Cases {
		if e.Key == 0 {
			return nil, fmt.Errorf("case %d: key is required", i+1)
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("case %d: duplicate key %d", i+1, e.Key)
		}
		seen[e.Key] = true
		cases = append(cases, &core.Case{
			Key:                e.Key,
			FileID:             e.FileID,
			Title:              e.Title,
			Court:              e.Court,
			WinnerLegalRole:    e.WinnerLegalRole,
			WinnerPersonalRole: e.WinnerPersonalRole,
			AppealOutcome:      e.AppealOutcome,
		})
	}
	return cases, nil
}

func casesCommand() *cli.Command {
	return &cli.Command{
		Name:  "cases",
		Usage: "Manage the cases briefs are linked to",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Upsert cases from a YAML file",
				ArgsUsage: "<file.yaml>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one case file is required")
					}
					data, err := os.ReadFile(c.Args().First())
					if err != nil {
						return err
					}
					cases, err := parseCases(data)
					if err != nil {
						return err
					}

					db, err := openDatabase(c, false)
					if err != nil {
						return err
					}
					defer db.Close()

					if err := db.ImportCases(c.Context, cases...); err != nil {
						return fmt.Errorf("import cases: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "imported %d cases\n", len(cases))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List known cases",
				Action: func(c *cli.Context) error {
					db, err := openDatabase(c, false)
					if err != nil {
						return err
					}
					defer db.Close()

					cases, err := db.Store().ListCases(c.Context)
					if err != nil {
						return err
					}
					for _, cs := range cases {
						fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%s\n", cs.Key, cs.FileID, cs.Court, cs.AppealOutcome)
					}
					return nil
				},
			},
			{
				Name:   "opinions",
				Usage:  "Create or update cases from the court opinions in a document tree",
				Action: casesOpinionsAction,
				Flags: append(sourceFlags(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of opinions parsed concurrently",
						Value: 4,
					},
				),
			},
		},
	}
}

func casesOpinionsAction(c *cli.Context) error {
	if c.Int("workers") <= 0 {
		return errors.New("workers must be greater than 0")
	}
	src, err := openSource(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := db.NewOpinionIngester(src, opinion.WithPoolSize(c.Int("workers")))
	if err != nil {
		return err
	}
	defer in.Release()

	report, err := in.IngestSource(c.Context)
	if err != nil {
		return fmt.Errorf("opinion ingestion failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "imported %d cases from %d opinions\n", len(report.Cases), report.Total)
	for _, f := range report.Failures {
		fmt.Fprintf(c.App.Writer, "  %s: %s\n", f.Path, f.Error)
	}
	if len(report.Failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d opinions failed", len(report.Failures), report.Total), 1)
	}
	return nil
}
