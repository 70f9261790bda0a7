// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command brieflink ingests appellate briefs and links them to their cases.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/brieflink"
	"github.com/poiesic/brieflink/ai"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "brieflink",
		Usage: "Ingest appellate briefs, link them to cases and chain their exchanges",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory of the embedded store (briefs for badger storage, checkpoints always)",
				Value:   "brieflink-data",
				EnvVars: []string{"BRIEFLINK_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Relational store backend (badger, postgres)",
				Value:   string(brieflink.StorageBadger),
				EnvVars: []string{"STORAGE_TYPE"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string for postgres storage",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"OLLAMA_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "analyzer-host",
				Usage: "Brief analysis service host URL (defaults to embedding-host)",
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "nomic-embed-text",
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "analyzer-model",
				Usage:   "Chat model used to summarize briefs",
				Value:   "qwen2.5:7b",
				EnvVars: []string{"ANALYZER_MODEL"},
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Expected embedding width (0 accepts any)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			ingestCommand(),
			chainCommand(),
			backfillCommand(),
			searchCommand(),
			casesCommand(),
			migrateCommand(),
		},
	}
}

// openDatabase builds a Database from the global flags. The AI flags are only
// read and validated when withAI is set; commands that never embed or analyze
// run without them.
func openDatabase(c *cli.Context, withAI bool) (*brieflink.Database, error) {
	var opts []brieflink.DatabaseOption
	if withAI {
		aiConfig, err := aiConfigFromFlags(c)
		if err != nil {
			return nil, err
		}
		opts = append(opts, brieflink.WithAIConfig(aiConfig))
	} else {
		opts = append(opts, brieflink.WithoutAI())
	}

	switch storageType := brieflink.StorageType(strings.ToLower(c.String("storage"))); storageType {
	case brieflink.StoragePostgres:
		if c.String("database-url") == "" {
			return nil, errors.New("database-url is required for postgres storage")
		}
		opts = append(opts, brieflink.WithPostgres(c.String("database-url")))
	default:
		opts = append(opts, brieflink.WithStorageType(storageType))
	}

	db, err := brieflink.NewDatabase(c.Context, c.String("data-dir"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	analyzerHost := c.String("analyzer-host")
	if analyzerHost == "" {
		analyzerHost = c.String("embedding-host")
	}
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithAnalyzerHost(analyzerHost),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAnalyzerModel(c.String("analyzer-model")),
		ai.WithDimensions(c.Int("dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return aiConfig, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
