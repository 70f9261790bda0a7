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

// Package postgres implements storage.Store on PostgreSQL with pgvector.
//
// Each document is written in one transaction: the brief row is upserted by
// source file and every child table is replaced. Embedding columns are
// untyped vector columns so any embedding width can be stored; similarity is
// the inner product, which equals cosine similarity for the normalized
// vectors the ingestion pipeline writes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/brieflink/storage"
)

// ErrDSNRequired is returned when Open is called without a connection string.
var ErrDSNRequired = errors.New("postgres connection string is required")

// Store implements storage.Store over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures Open.
type Option func(*options)

type options struct {
	migrate  bool
	maxConns int32
	logger   *slog.Logger
}

// WithoutMigrations skips applying pending migrations on Open.
func WithoutMigrations() Option {
	return func(o *options) {
		o.migrate = false
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		o.maxConns = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open connects to dsn, applies pending migrations and returns a ready store.
// The vector extension must exist before the pool connects, so migrations
// run first.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	o := &options{migrate: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	if o.migrate {
		if err := Migrate(dsn); err != nil {
			return nil, err
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool, logger: o.logger.With("component", "postgres")}, nil
}

// Close releases the pool. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.logger.Debug("closing postgres pool")
		s.pool.Close()
	}
	return nil
}

func (s *Store) check() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if err := s.check(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, fn)
}
