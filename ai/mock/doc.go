// Package mock provides test doubles for the ai interfaces.
//
// The mocks run without external services and are deterministic:
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockBriefAnalyzer: the text's first sentence as summary, no issues
//   - MockProvider: aggregates the two
//
// Behavior is injected through function fields, and call counters are
// atomic so the mocks can sit behind a concurrent pipeline.
//
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
//	        return nil, errors.New("embedding service down")
//	    })
//	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockBriefAnalyzer())
package mock
