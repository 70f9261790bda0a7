package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/brieflink/ai"
)

// MockBriefAnalyzer is a test double for ai.BriefAnalyzer.
type MockBriefAnalyzer struct {
	// AnalyzeBriefFunc is called by AnalyzeBrief if set.
	// If nil, the summary is the first sentence of the text and no issues
	// are reported.
	AnalyzeBriefFunc func(ctx context.Context, text string) (ai.BriefAnalysis, error)

	callCount atomic.Int64
}

var _ ai.BriefAnalyzer = (*MockBriefAnalyzer)(nil)

// NewMockBriefAnalyzer creates a mock analyzer with default behavior.
func NewMockBriefAnalyzer() *MockBriefAnalyzer {
	return &MockBriefAnalyzer{}
}

// WithAnalyzeBriefFunc sets custom behavior and returns m.
func (m *MockBriefAnalyzer) WithAnalyzeBriefFunc(fn func(ctx context.Context, text string) (ai.BriefAnalysis, error)) *MockBriefAnalyzer {
	m.AnalyzeBriefFunc = fn
	return m
}

func (m *MockBriefAnalyzer) AnalyzeBrief(ctx context.Context, text string) (ai.BriefAnalysis, error) {
	m.callCount.Add(1)
	if m.AnalyzeBriefFunc != nil {
		return m.AnalyzeBriefFunc(ctx, text)
	}
	summary := strings.TrimSpace(text)
	if i := strings.IndexAny(summary, ".\n"); i >= 0 {
		summary = summary[:i]
	}
	return ai.BriefAnalysis{Summary: summary}, nil
}

// CallCount returns the number of AnalyzeBrief calls.
func (m *MockBriefAnalyzer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockBriefAnalyzer) Reset() {
	m.callCount.Store(0)
	m.AnalyzeBriefFunc = nil
}
