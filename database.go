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

// Package brieflink wires storage, AI services and the processing passes
// into one handle.
package brieflink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/ai/openai"
	"github.com/poiesic/brieflink/backfill"
	"github.com/poiesic/brieflink/chain"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/ingestion"
	"github.com/poiesic/brieflink/opinion"
	"github.com/poiesic/brieflink/search"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
	"github.com/poiesic/brieflink/storage/badger"
	"github.com/poiesic/brieflink/storage/postgres"
)

// StorageType names the relational store backend.
type StorageType string

const (
	// StorageBadger keeps everything in the embedded store under the data directory.
	StorageBadger StorageType = "badger"
	// StoragePostgres keeps briefs and cases in PostgreSQL with pgvector.
	StoragePostgres StorageType = "postgres"
)

var (
	// ErrUnknownStorage is returned for a StorageType other than badger or postgres.
	ErrUnknownStorage = errors.New("unknown storage type")
	// ErrNoProvider is returned by passes that need AI services from a
	// Database opened WithoutAI.
	ErrNoProvider = errors.New("database has no AI provider")
)

// Database owns the stores and AI provider shared by every pass.
// Checkpoints always live in the embedded store under the data directory,
// whichever backend holds the briefs.
type Database struct {
	backend     *badger.Backend
	store       storage.Store
	checkpoints storage.CheckpointRepository
	provider    ai.AIProvider
	chain       *chain.Builder
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	withoutAI   bool
	storageType StorageType
	dsn         string
	pgOptions   []postgres.Option
	logger      *slog.Logger
}

// WithAIConfig sets the configuration for the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithoutAI opens the Database with no AI provider. Case import, chaining and
// listing work; ingestion, backfill and search return ErrNoProvider.
func WithoutAI() DatabaseOption {
	return func(o *databaseOptions) {
		o.withoutAI = true
	}
}

// WithPostgres stores briefs and cases in PostgreSQL at dsn.
func WithPostgres(dsn string, opts ...postgres.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.storageType = StoragePostgres
		o.dsn = dsn
		o.pgOptions = opts
	}
}

// WithStorageType selects the backend by name, as read from configuration.
func WithStorageType(t StorageType) DatabaseOption {
	return func(o *databaseOptions) {
		o.storageType = t
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the data directory and, for postgres storage, connects
// and migrates the relational store.
func NewDatabase(ctx context.Context, dataDir string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		storageType: StorageBadger,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.provider == nil && options.aiConfig == nil && !options.withoutAI {
		options.aiConfig = ai.DefaultConfig()
	}

	backend, err := badger.OpenBackend(dataDir, false)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch options.storageType {
	case StorageBadger, "":
		store = badger.NewStore(backend)
	case StoragePostgres:
		pgOpts := append([]postgres.Option{postgres.WithLogger(options.logger)}, options.pgOptions...)
		store, err = postgres.Open(ctx, options.dsn, pgOpts...)
		if err != nil {
			backend.Close()
			return nil, err
		}
	default:
		backend.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, options.storageType)
	}

	provider := options.provider
	if provider == nil && !options.withoutAI {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			backend.Close()
			return nil, err
		}
	}

	builder, err := chain.New(store, chain.WithLogger(options.logger))
	if err != nil {
		if provider != nil {
			provider.Close()
		}
		store.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:     backend,
		store:       store,
		checkpoints: badger.NewCheckpointRepository(backend),
		provider:    provider,
		chain:       builder,
		logger:      options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Store() storage.Store {
	return db.store
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpoints
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// ImportCases upserts linking targets.
func (db *Database) ImportCases(ctx context.Context, cases ...*core.Case) error {
	for _, c := range cases {
		if err := core.ValidateCase(c); err != nil {
			return err
		}
	}
	return db.store.UpsertCases(ctx, cases...)
}

func (db *Database) NewIngestionPipeline(src source.Source, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	if db.provider == nil {
		return nil, ErrNoProvider
	}
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.store, db.checkpoints, src, db.provider, opts...)
}

// NewOpinionIngester reads court opinions from src and upserts their cases.
// It needs no AI provider.
func (db *Database) NewOpinionIngester(src source.Source, opts ...opinion.Option) (*opinion.Ingester, error) {
	opts = append([]opinion.Option{opinion.WithLogger(db.logger)}, opts...)
	return opinion.NewIngester(db.store, src, opts...)
}

// ResetCheckpoints forgets which files were ingested, so the next run
// processes every file again.
func (db *Database) ResetCheckpoints(ctx context.Context) error {
	return db.checkpoints.DeleteCheckpoints(ctx, ingestion.ProcessorType)
}

// ChainCase links the responsive briefs of one case to the briefs they answer.
func (db *Database) ChainCase(ctx context.Context, caseKey int64) (chain.Report, error) {
	return db.chain.ChainCase(ctx, caseKey)
}

// ChainAll chains every case that has linked briefs.
func (db *Database) ChainAll(ctx context.Context) ([]chain.Report, error) {
	return db.chain.ChainAll(ctx)
}

func (db *Database) NewBackfiller(config *backfill.Config, progress io.Writer) (*backfill.Backfiller, error) {
	if db.provider == nil {
		return nil, ErrNoProvider
	}
	return backfill.NewBackfiller(db.store, db.provider.Embedder(), config, progress)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	if db.provider == nil {
		return nil, ErrNoProvider
	}
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.store, db.provider, opts...)
}
