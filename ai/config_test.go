package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AnalyzerHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:7b", cfg.AnalyzerModel)
	assert.Equal(t, 8000, cfg.BriefEmbeddingChars)
	assert.Equal(t, 500, cfg.SummaryFallbackChars)
	assert.Zero(t, cfg.Dimensions)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.AnalyzerHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithAnalyzerHost("http://analyze:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://analyze:9090/v1", cfg.AnalyzerHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithAnalyzerModel("gpt-4o-mini"),
			WithAPIKey("sk-test"),
			WithDimensions(1536),
			WithBriefEmbeddingChars(4000),
			WithSummaryFallbackChars(200),
			WithMaxIssues(3),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.AnalyzerModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, 1536, cfg.Dimensions)
		assert.Equal(t, 4000, cfg.BriefEmbeddingChars)
		assert.Equal(t, 200, cfg.SummaryFallbackChars)
		assert.Equal(t, 3, cfg.MaxIssues)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.in, AnalyzerHost: tt.in}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, tt.want, cfg.AnalyzerHost)
			assert.Equal(t, "none", cfg.APIKey)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost is required"},
		{"missing analyzer host", func(c *Config) { c.AnalyzerHost = "" }, "AnalyzerHost is required"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel is required"},
		{"missing analyzer model", func(c *Config) { c.AnalyzerModel = "" }, "AnalyzerModel is required"},
		{"negative dimensions", func(c *Config) { c.Dimensions = -1 }, "Dimensions"},
		{"zero brief chars", func(c *Config) { c.BriefEmbeddingChars = 0 }, "BriefEmbeddingChars"},
		{"zero summary chars", func(c *Config) { c.SummaryFallbackChars = 0 }, "SummaryFallbackChars"},
		{"zero analysis chars", func(c *Config) { c.AnalysisInputChars = 0 }, "AnalysisInputChars"},
		{"zero issues", func(c *Config) { c.MaxIssues = 0 }, "MaxIssues"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeIssueCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Evidence", "Evidence"},
		{"evidence", "Evidence"},
		{"criminal", "Criminal Law & Procedure"},
		{"Child Support - income imputation", "Child Support"},
		{"", "Miscellaneous / Unclassified"},
		{"maritime salvage", "Miscellaneous / Unclassified"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIssueCategory(tt.in))
		})
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abc", Prefix("abcdef", 3))
	assert.Equal(t, "abc", Prefix("abc", 10))
	assert.Equal(t, "", Prefix("abc", 0))
	assert.Equal(t, "§ 1", Prefix("§ 1.2", 3), "counts runes, not bytes")
	assert.Equal(t, "Brief", FallbackSummary("  Brief of Appellant", 7))
}
