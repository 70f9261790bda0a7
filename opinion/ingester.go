package opinion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/extract"
	"github.com/poiesic/brieflink/metadata"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
)

var (
	ErrCaseStoreRequired = errors.New("case store is required")
	ErrSourceRequired    = errors.New("source is required")
	// ErrNoDocket is returned for an opinion whose text and file name carry
	// no docket number.
	ErrNoDocket = errors.New("no docket number found")
)

// CaseStore is the subset of storage.CaseRepository the Ingester needs.
type CaseStore interface {
	UpsertCases(ctx context.Context, cases ...*core.Case) error
	FindCaseByNormalizedID(ctx context.Context, id string) (*core.Case, error)
}

var _ CaseStore = (storage.CaseRepository)(nil)

// Ingester reads opinions from a Source and upserts one case per opinion.
type Ingester struct {
	cases     CaseStore
	source    source.Source
	extractor extract.Extractor
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester) error

// WithExtractor replaces the default pdftotext-then-pure-Go extractor chain.
func WithExtractor(e extract.Extractor) Option {
	return func(in *Ingester) error {
		if e != nil {
			in.extractor = e
		}
		return nil
	}
}

// WithPoolSize sets how many opinions are parsed concurrently.
func WithPoolSize(size int) Option {
	return func(in *Ingester) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if in.pool != nil {
			in.pool.Release()
		}
		in.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) error {
		if logger != nil {
			in.logger = logger
		}
		return nil
	}
}

// NewIngester creates an Ingester. Call Release when done.
func NewIngester(cases CaseStore, src source.Source, opts ...Option) (*Ingester, error) {
	if cases == nil {
		return nil, ErrCaseStoreRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}
	pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
	if err != nil {
		return nil, err
	}
	in := &Ingester{
		cases:     cases,
		source:    src,
		extractor: extract.Chain{&extract.PDFToText{}, extract.PDFReader{}},
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(in); err != nil {
			in.Release()
			return nil, err
		}
	}
	in.logger = in.logger.With("component", "opinion")
	return in, nil
}

// Release stops the worker pool.
func (in *Ingester) Release() {
	in.pool.Release()
}

// Failure names an opinion that produced no case.
type Failure struct {
	Path  string
	Error string
}

// Report summarizes one IngestSource run.
type Report struct {
	Total    int
	Cases    []*core.Case // upserted cases ordered by key
	Failures []Failure    // ordered by path
}

// IngestSource parses every opinion in the source. One opinion's failure
// never stops the others; only a listing failure is returned as an error.
func (in *Ingester) IngestSource(ctx context.Context) (*Report, error) {
	files, err := in.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source: %w", err)
	}

	report := &Report{Total: len(files)}
	var mu sync.Mutex
	record := func(p string, c *core.Case, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: p, Error: err.Error()})
			return
		}
		report.Cases = append(report.Cases, c)
	}

	var wg sync.WaitGroup
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			record(f.Path, nil, err)
			continue
		}
		wg.Add(1)
		p := f.Path
		if err := in.pool.Submit(func() {
			defer wg.Done()
			c, _, err := in.IngestFile(ctx, p)
			record(p, c, err)
		}); err != nil {
			wg.Done()
			record(p, nil, err)
		}
	}
	wg.Wait()

	slices.SortFunc(report.Cases, func(a, b *core.Case) int { return cmp.Compare(a.Key, b.Key) })
	slices.SortFunc(report.Failures, func(a, b Failure) int { return strings.Compare(a.Path, b.Path) })
	in.logger.Info("opinions ingested", "total", report.Total, "cases", len(report.Cases), "failed", len(report.Failures))
	return report, nil
}

// IngestFile parses the opinion at p and upserts its case.
func (in *Ingester) IngestFile(ctx context.Context, p string) (*core.Case, Opinion, error) {
	logger := in.logger.With("source", p)

	data, err := in.source.Read(ctx, p)
	if err != nil {
		return nil, Opinion{}, err
	}
	text, err := in.extractor.Extract(ctx, data)
	if err != nil {
		logger.Error("opinion text extraction failed", "err", err)
		return nil, Opinion{}, err
	}

	op := Parse(text.Content)
	if op.FileID == "" {
		op.FileID = DocketFromName(path.Base(p))
	}
	if op.FileID == "" {
		return nil, op, fmt.Errorf("%s: %w", p, ErrNoDocket)
	}

	key, err := in.caseKey(ctx, op.FileID, p)
	if err != nil {
		return nil, op, err
	}
	c := &core.Case{
		Key:             key,
		FileID:          op.FileID,
		Title:           op.Title,
		Court:           op.Court,
		WinnerLegalRole: op.WinnerLegalRole(),
		AppealOutcome:   op.Outcome,
	}
	if err := in.cases.UpsertCases(ctx, c); err != nil {
		return nil, op, fmt.Errorf("upsert case %s: %w", op.FileID, err)
	}

	logger.Debug("opinion ingested",
		"case", c.Key,
		"docket", c.FileID,
		"outcome", c.AppealOutcome,
		"filed", op.Filed)
	return c, op, nil
}

// caseKey reuses the key of a case already filed under the docket. A new case
// takes the numeric id in the file name ("opinion_934.pdf" or "934.pdf"), or
// failing that the digits of the docket.
func (in *Ingester) caseKey(ctx context.Context, fileID, p string) (int64, error) {
	normalized := caseid.Normalize(fileID)
	existing, err := in.cases.FindCaseByNormalizedID(ctx, normalized)
	switch {
	case err == nil:
		return existing.Key, nil
	case !errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("docket lookup %s: %w", fileID, err)
	}

	rec := metadata.Parse(p)
	stem := strings.TrimSuffix(rec.FileName, path.Ext(rec.FileName))
	for _, candidate := range []string{rec.FilenameCaseID, stem, normalized} {
		if key, err := strconv.ParseInt(candidate, 10, 64); err == nil && key > 0 {
			return key, nil
		}
	}
	return 0, fmt.Errorf("%s: no usable case key", fileID)
}
