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

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// AnalyzerHost is the base URL for the chat model used for brief analysis.
	AnalyzerHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// AnalyzerModel is the model identifier used to summarize briefs and
	// list their issues.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	AnalyzerModel string

	// APIKey is sent as the bearer token. Local servers ignore it.
	APIKey string

	// Dimensions is the expected embedding width. Zero accepts any width;
	// otherwise vectors of a different width are rejected.
	Dimensions int

	// BriefEmbeddingChars bounds the prefix of a brief's text embedded as
	// the brief-level vector. Default: 8000
	BriefEmbeddingChars int

	// SummaryFallbackChars is the length of the text prefix used as the
	// summary when analysis fails. Default: 500
	SummaryFallbackChars int

	// AnalysisInputChars bounds the text sent to the analyzer. Default: 12000
	AnalysisInputChars int

	// MaxIssues caps the number of issues kept from an analysis. Default: 8
	MaxIssues int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithAnalyzerHost sets the analyzer service host URL.
func WithAnalyzerHost(host string) ConfigOption {
	return func(c *Config) {
		c.AnalyzerHost = host
	}
}

// WithHost sets both embedding and analyzer hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.AnalyzerHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAnalyzerModel sets the analyzer model identifier.
func WithAnalyzerModel(model string) ConfigOption {
	return func(c *Config) {
		c.AnalyzerModel = model
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the expected embedding width.
func WithDimensions(n int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = n
	}
}

// WithBriefEmbeddingChars sets the brief embedding prefix length.
func WithBriefEmbeddingChars(n int) ConfigOption {
	return func(c *Config) {
		c.BriefEmbeddingChars = n
	}
}

// WithSummaryFallbackChars sets the fallback summary length.
func WithSummaryFallbackChars(n int) ConfigOption {
	return func(c *Config) {
		c.SummaryFallbackChars = n
	}
}

// WithMaxIssues caps the issues kept per brief.
func WithMaxIssues(n int) ConfigOption {
	return func(c *Config) {
		c.MaxIssues = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and analyzer use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:        defaultHost,
		AnalyzerHost:         defaultHost,
		EmbeddingModel:       "nomic-embed-text",
		AnalyzerModel:        "qwen2.5:7b",
		APIKey:               "none",
		BriefEmbeddingChars:  8000,
		SummaryFallbackChars: 500,
		AnalysisInputChars:   12000,
		MaxIssues:            8,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithDimensions(1536),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.AnalyzerHost = withV1(c.AnalyzerHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.AnalyzerHost == "" {
		return errors.New("ai config: AnalyzerHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.AnalyzerModel == "" {
		return errors.New("ai config: AnalyzerModel is required")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions must not be negative")
	}
	if c.BriefEmbeddingChars < 1 {
		return errors.New("ai config: BriefEmbeddingChars must be positive")
	}
	if c.SummaryFallbackChars < 1 {
		return errors.New("ai config: SummaryFallbackChars must be positive")
	}
	if c.AnalysisInputChars < 1 {
		return errors.New("ai config: AnalysisInputChars must be positive")
	}
	if c.MaxIssues < 1 {
		return errors.New("ai config: MaxIssues must be positive")
	}
	return nil
}
