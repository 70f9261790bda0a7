package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/authority"
	"github.com/poiesic/brieflink/extract"
	"github.com/poiesic/brieflink/link"
	"github.com/poiesic/brieflink/retry"
	"github.com/poiesic/brieflink/segment"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
)

// Defaults for the AI text limits.
const (
	DefaultBriefEmbeddingChars  = 8000
	DefaultSummaryFallbackChars = 500
)

// Pipeline ingests source files concurrently, one worker per document.
type Pipeline struct {
	store       storage.Store
	checkpoints storage.CheckpointRepository
	source      source.Source

	pool            *ants.Pool
	extractor       extract.Extractor
	segmenter       *segment.Segmenter
	authorities     *authority.Extractor
	policy          retry.Policy
	embedBatchSize  int
	briefChars      int
	fallbackChars   int
	minSuffixDigits int
	rejectAmbiguous bool
	force           bool
	logger          *slog.Logger

	proc     processor
	released atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of documents processed concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithExtractor replaces the default pdftotext-then-pure-Go extractor chain.
func WithExtractor(e extract.Extractor) Option {
	return func(p *Pipeline) error {
		if e != nil {
			p.extractor = e
		}
		return nil
	}
}

// WithSegmenter replaces the default segmenter.
func WithSegmenter(s *segment.Segmenter) Option {
	return func(p *Pipeline) error {
		if s != nil {
			p.segmenter = s
		}
		return nil
	}
}

// WithAuthorityExtractor replaces the default authority extractor.
func WithAuthorityExtractor(e *authority.Extractor) Option {
	return func(p *Pipeline) error {
		if e != nil {
			p.authorities = e
		}
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding and analysis calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		p.policy = policy
		return nil
	}
}

// WithEmbedBatchSize sets how many texts go into one embedding request.
func WithEmbedBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.embedBatchSize = n
		}
		return nil
	}
}

// WithTextLimits sets how many characters of a brief are embedded as the
// brief vector and how many form the fallback summary.
func WithTextLimits(briefEmbeddingChars, summaryFallbackChars int) Option {
	return func(p *Pipeline) error {
		if briefEmbeddingChars > 0 {
			p.briefChars = briefEmbeddingChars
		}
		if summaryFallbackChars > 0 {
			p.fallbackChars = summaryFallbackChars
		}
		return nil
	}
}

// WithMinSuffixDigits is passed to the linker; see link.WithMinSuffixDigits.
func WithMinSuffixDigits(n int) Option {
	return func(p *Pipeline) error {
		p.minSuffixDigits = n
		return nil
	}
}

// WithRejectAmbiguousSuffix is passed to the linker; see link.WithRejectAmbiguousSuffix.
func WithRejectAmbiguousSuffix(reject bool) Option {
	return func(p *Pipeline) error {
		p.rejectAmbiguous = reject
		return nil
	}
}

// WithForce reprocesses files even when their checkpoint says the content is unchanged.
func WithForce(force bool) Option {
	return func(p *Pipeline) error {
		p.force = force
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	store storage.Store,
	checkpoints storage.CheckpointRepository,
	src source.Source,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	segmenter, err := segment.New()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		store:          store,
		checkpoints:    checkpoints,
		source:         src,
		pool:           pool,
		extractor:      extract.Chain{&extract.PDFToText{}, extract.PDFReader{}},
		segmenter:      segmenter,
		authorities:    authority.New(),
		policy:         retry.DefaultPolicy,
		embedBatchSize: defaultEmbedBatchSize,
		briefChars:     DefaultBriefEmbeddingChars,
		fallbackChars:  DefaultSummaryFallbackChars,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Build the processor after options so it sees the final configuration.
	linkOpts := []link.Option{link.WithMinSuffixDigits(p.minSuffixDigits), link.WithLogger(p.logger)}
	if p.rejectAmbiguous {
		linkOpts = append(linkOpts, link.WithRejectAmbiguousSuffix())
	}
	linker, err := link.New(store, linkOpts...)
	if err != nil {
		p.Release()
		return nil, err
	}
	logger := p.logger.With("component", "ingestion")
	p.proc = &documentProcessor{
		store:       store,
		checkpoints: checkpoints,
		source:      src,
		extractor:   p.extractor,
		linker:      linker,
		segmenter:   p.segmenter,
		authorities: p.authorities,
		enricher: &enricher{
			embedder:      provider.Embedder(),
			analyzer:      provider.BriefAnalyzer(),
			policy:        p.policy,
			batchSize:     p.embedBatchSize,
			briefChars:    p.briefChars,
			fallbackChars: p.fallbackChars,
			logger:        logger,
		},
		force:  p.force,
		logger: logger,
	}
	p.logger = logger
	return p, nil
}

// IngestFile ingests one source file in the calling goroutine. Processing
// failures are reported in the Result, not as an error.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (Result, error) {
	if p.released.Load() {
		return Result{}, ErrPipelineReleased
	}
	return p.proc.process(ctx, path), nil
}

// IngestSource lists the pipeline's source and ingests every file.
func (p *Pipeline) IngestSource(ctx context.Context) (*Summary, error) {
	if p.released.Load() {
		return nil, ErrPipelineReleased
	}
	files, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source: %w", err)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return p.IngestBatch(ctx, paths)
}

// IngestBatch ingests paths on the worker pool and waits for all of them.
// One document's failure never stops the batch. Files not started before ctx
// ends are reported as skipped.
func (p *Pipeline) IngestBatch(ctx context.Context, paths []string) (*Summary, error) {
	if p.released.Load() {
		return nil, ErrPipelineReleased
	}

	summary := newSummary()
	logger := p.logger.With("run", summary.RunID.String())
	logger.Info("starting batch", "files", len(paths), "workers", p.pool.Cap())

	var mu sync.Mutex
	record := func(r Result) {
		mu.Lock()
		summary.add(r)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			record(Result{SourceFile: path, Outcome: OutcomeSkipped, Err: err})
			continue
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				record(Result{SourceFile: path, Outcome: OutcomeSkipped, Err: err})
				return
			}
			record(p.proc.process(ctx, path))
		})
		if err != nil {
			wg.Done()
			record(Result{SourceFile: path, Outcome: OutcomeFailed, Stage: StageRead, Err: err})
		}
	}
	wg.Wait()

	summary.Finished = time.Now().UTC()
	logger.Info("batch complete",
		"total", summary.Total,
		"completed", summary.Completed,
		"partial", summary.Partial,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"linked", summary.Linked,
		"elapsed", summary.Duration().Round(time.Millisecond))
	return summary, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.released.CompareAndSwap(false, true) && p.pool != nil {
		p.pool.Release()
	}
}
