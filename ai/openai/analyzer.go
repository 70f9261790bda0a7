package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/brieflink/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const parseAttempts = 3

// BriefAnalyzer implements ai.BriefAnalyzer with a chat model in JSON mode.
type BriefAnalyzer struct {
	client     llms.Model
	inputChars int
	maxIssues  int
	logger     *slog.Logger
}

var _ ai.BriefAnalyzer = (*BriefAnalyzer)(nil)

type issue struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

type analysis struct {
	Summary string  `json:"summary"`
	Issues  []issue `json:"issues"`
}

func newBriefAnalyzer(config *ai.Config) (*BriefAnalyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AnalyzerHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.AnalyzerModel),
	)
	if err != nil {
		return nil, err
	}
	return newBriefAnalyzerWithModel(client, config), nil
}

func newBriefAnalyzerWithModel(client llms.Model, config *ai.Config) *BriefAnalyzer {
	return &BriefAnalyzer{
		client:     client,
		inputChars: config.AnalysisInputChars,
		maxIssues:  config.MaxIssues,
		logger:     slog.Default().With("component", "openai-analyzer"),
	}
}

// NewBriefAnalyzer creates an analyzer from config.
func NewBriefAnalyzer(config *ai.Config) (ai.BriefAnalyzer, error) {
	return newBriefAnalyzer(config)
}

// AnalyzeBrief sends the opening portion of text to the model. Malformed
// JSON is repaired and, failing that, the request is repeated up to three
// times. Transport errors are returned immediately for the caller to retry.
func (a *BriefAnalyzer) AnalyzeBrief(ctx context.Context, text string) (ai.BriefAnalysis, error) {
	input := scrubString(ai.Prefix(text, a.inputChars))
	if input == "" {
		return ai.BriefAnalysis{}, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt(a.maxIssues)),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	var result analysis
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return ai.BriefAnalysis{}, err
		}
		if len(response.Choices) < 1 {
			a.logger.Debug("no choices returned from model")
			return ai.BriefAnalysis{}, nil
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))
		result = analysis{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			a.logger.Warn("error parsing analyzer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		a.logger.Error("failed to parse analyzer response after retries", "err", lastErr)
		return ai.BriefAnalysis{}, lastErr
	}

	out := ai.BriefAnalysis{Summary: strings.TrimSpace(result.Summary)}
	seen := make(map[string]bool)
	for _, is := range result.Issues {
		desc := strings.TrimSpace(is.Description)
		if desc == "" || seen[strings.ToLower(desc)] {
			continue
		}
		seen[strings.ToLower(desc)] = true
		out.Issues = append(out.Issues, ai.NormalizeIssueCategory(is.Category)+": "+desc)
		if len(out.Issues) == a.maxIssues {
			break
		}
	}

	a.logger.Debug("analyzed brief", "issues", len(out.Issues), "summary_len", len(out.Summary))
	return out, nil
}
