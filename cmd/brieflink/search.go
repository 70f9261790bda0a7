package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search ingested briefs",
		Subcommands: []*cli.Command{
			{
				Name:      "chunks",
				Usage:     "Semantic search over brief chunks",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					newCaseFlag(),
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 10,
					},
				},
				Action: searchChunksAction,
			},
			{
				Name:      "phrases",
				Usage:     "Substring search over extracted phrases",
				ArgsUsage: "<text>",
				Flags: []cli.Flag{
					newCaseFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 20,
					},
				},
				Action: searchPhrasesAction,
			},
		},
	}
}

func newCaseFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:  "case",
		Usage: "Restrict results to one case key",
	}
}

func caseFilter(c *cli.Context) *int64 {
	if !c.IsSet("case") {
		return nil
	}
	key := c.Int64("case")
	return &key
}

func searchChunksAction(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	results, err := searcher.FindChunks(c.Context, query, c.Int("max-hits"), caseFilter(c))
	if err != nil {
		return err
	}

	for i, r := range results {
		marker := ""
		if r.Verbatim {
			marker = " verbatim"
		}
		fmt.Fprintf(c.App.Writer, "%2d. [%.3f%s] brief %d chunk %d (%s)\n", i+1, r.Score, marker, r.Chunk.BriefID, r.Chunk.Order, r.Chunk.Section)
		fmt.Fprintf(c.App.Writer, "    %s\n", snippet(r.Chunk.Text, 200))
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "no matches")
	}
	return nil
}

func searchPhrasesAction(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search text is required")
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	matches, err := searcher.FindPhrases(c.Context, query, caseFilter(c), c.Int("limit"))
	if err != nil {
		return err
	}

	for _, m := range matches {
		caseKey := "-"
		if m.CaseKey != nil {
			caseKey = fmt.Sprint(*m.CaseKey)
		}
		fmt.Fprintf(c.App.Writer, "%-40s x%-4d case %s brief %d\n", m.Phrase.Text, m.Phrase.Frequency, caseKey, m.Phrase.BriefID)
	}
	if len(matches) == 0 {
		fmt.Fprintln(c.App.Writer, "no matches")
	}
	return nil
}

// snippet collapses whitespace and cuts text to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
