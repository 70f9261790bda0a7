package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/brieflink/ai"
)

// fakeModel answers GenerateContent with queued responses.
type fakeModel struct {
	llms.Model
	responses []string
	err       error
	calls     int
	lastInput string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if tp, ok := messages[len(messages)-1].Parts[0].(llms.TextContent); ok {
		f.lastInput = tp.Text
	}
	if len(f.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r}}}, nil
}

func TestBriefAnalyzer(t *testing.T) {
	ctx := context.Background()
	cfg := ai.NewConfig(ai.WithMaxIssues(2))

	t.Run("parses fenced response", func(t *testing.T) {
		model := &fakeModel{responses: []string{"```json\n" + `{
  "summary": " Appellant challenges the sentence. ",
  "issues": [
    {"category": "criminal", "description": "Whether the offender score was miscalculated."},
    {"category": "Evidence", "description": "whether the offender score was miscalculated."},
    {"category": "Nonsense", "description": "Whether fees were proper."},
    {"category": "Evidence", "description": "Third issue is dropped."}
  ]
}` + "\n```"}}
		a := newBriefAnalyzerWithModel(model, cfg)

		got, err := a.AnalyzeBrief(ctx, "BRIEF OF APPELLANT\f\x00 text")
		require.NoError(t, err)
		assert.Equal(t, "Appellant challenges the sentence.", got.Summary)
		assert.Equal(t, []string{
			"Criminal Law & Procedure: Whether the offender score was miscalculated.",
			"Miscellaneous / Unclassified: Whether fees were proper.",
		}, got.Issues)
		assert.Equal(t, "BRIEF OF APPELLANT text", model.lastInput)
	})

	t.Run("repairs then retries malformed json", func(t *testing.T) {
		model := &fakeModel{responses: []string{
			`not json at all`,
			`{summary": "Short.", issues": [],}`,
		}}
		a := newBriefAnalyzerWithModel(model, cfg)

		got, err := a.AnalyzeBrief(ctx, "text")
		require.NoError(t, err)
		assert.Equal(t, "Short.", got.Summary)
		assert.Empty(t, got.Issues)
		assert.Equal(t, 2, model.calls)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		model := &fakeModel{responses: []string{`nope`}}
		a := newBriefAnalyzerWithModel(model, cfg)

		_, err := a.AnalyzeBrief(ctx, "text")
		assert.Error(t, err)
		assert.Equal(t, parseAttempts, model.calls)
	})

	t.Run("transport error is returned at once", func(t *testing.T) {
		model := &fakeModel{err: errors.New("connection refused")}
		a := newBriefAnalyzerWithModel(model, cfg)

		_, err := a.AnalyzeBrief(ctx, "text")
		assert.EqualError(t, err, "connection refused")
		assert.Equal(t, 1, model.calls)
	})

	t.Run("empty input skips the model", func(t *testing.T) {
		model := &fakeModel{}
		a := newBriefAnalyzerWithModel(model, cfg)

		got, err := a.AnalyzeBrief(ctx, " \f ")
		require.NoError(t, err)
		assert.Zero(t, got)
		assert.Zero(t, model.calls)
	})

	t.Run("input is truncated", func(t *testing.T) {
		model := &fakeModel{responses: []string{`{"summary":"s","issues":[]}`}}
		a := newBriefAnalyzerWithModel(model, ai.NewConfig(func(c *ai.Config) { c.AnalysisInputChars = 5 }))

		_, err := a.AnalyzeBrief(ctx, "abcdefghij")
		require.NoError(t, err)
		assert.Equal(t, "abcde", model.lastInput)
	})
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"valid", `{"summary":"a","issues":[]}`},
		{"missing key quotes", `{summary": "a", issues": []}`},
		{"trailing commas", `{"summary":"a","issues":[{"category":"x","description":"y"},],}`},
		{"truncated", `{"summary":"a","issues":[{"category":"x","description":"y`},
		{"commas inside strings survive", `{"summary":"a, b,","issues":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out analysis
			require.NoError(t, json.Unmarshal([]byte(repairJSON(tt.in)), &out), repairJSON(tt.in))
			assert.True(t, strings.HasPrefix(out.Summary, "a"))
		})
	}
}

func TestScrubString(t *testing.T) {
	assert.Equal(t, "a b c", scrubString(" a\n\tb\f\x00  c "))
	assert.Equal(t, "State v. Smith, 1 Wn.2d 2", scrubString("State v. Smith, 1 Wn.2d 2"))
}

type fakeEmbedClient struct {
	dim int
	n   int // vectors returned; -1 means one per text
}

func (f *fakeEmbedClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	n := f.n
	if n < 0 {
		n = len(texts)
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	e, err := newEmbedderWithClient(&fakeEmbedClient{dim: 4, n: -1}, 4)
	require.NoError(t, err)
	vecs, err := e.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	v, err := e.EmbedText(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, v, 4)

	empty, err := e.EmbedTexts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	wrongDim, err := newEmbedderWithClient(&fakeEmbedClient{dim: 3, n: -1}, 4)
	require.NoError(t, err)
	_, err = wrongDim.EmbedText(ctx, "a")
	assert.ErrorIs(t, err, ai.ErrDimensionMismatch)

	short, err := newEmbedderWithClient(&fakeEmbedClient{dim: 4, n: 1}, 0)
	require.NoError(t, err)
	_, err = short.EmbedTexts(ctx, []string{"a", "b"})
	assert.Error(t, err)
}
