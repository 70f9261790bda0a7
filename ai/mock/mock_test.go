package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/brieflink/ai"
)

func TestVector(t *testing.T) {
	a := Vector("State v. Smith", 32)
	b := Vector("State v. Smith", 32)
	c := Vector("State v. Jones", 32)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_ConcurrentCounts(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.EmbedTexts(context.Background(), []string{"a", "b", "c"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, m.CallCount())
	assert.Equal(t, 24, m.TextCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestMockEmbedder_Injected(t *testing.T) {
	boom := errors.New("down")
	m := NewMockEmbedder().WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	})
	_, err := m.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)

	v, err := m.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	analysis, err := p.BriefAnalyzer().AnalyzeBrief(context.Background(), " Appellant seeks review. More text.")
	require.NoError(t, err)
	assert.Equal(t, "Appellant seeks review", analysis.Summary)

	mp := p.(*MockProvider)
	assert.Equal(t, 1, mp.GetMockAnalyzer().CallCount())

	mp.GetMockAnalyzer().WithAnalyzeBriefFunc(func(context.Context, string) (ai.BriefAnalysis, error) {
		return ai.BriefAnalysis{Issues: []string{"Evidence: hearsay"}}, nil
	})
	analysis, err = p.BriefAnalyzer().AnalyzeBrief(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Evidence: hearsay"}, analysis.Issues)

	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
