package opinion

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/extract"
	"github.com/poiesic/brieflink/link"
	"github.com/poiesic/brieflink/metadata"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
	"github.com/poiesic/brieflink/storage/badger"
)

// memSource serves opinion text from memory.
type memSource map[string]string

var _ source.Source = memSource(nil)

func (s memSource) List(ctx context.Context) ([]source.File, error) {
	var files []source.File
	for p, text := range s {
		files = append(files, source.File{Path: p, Size: int64(len(text))})
	}
	slices.SortFunc(files, func(a, b source.File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

func (s memSource) Read(ctx context.Context, p string) ([]byte, error) {
	text, ok := s[p]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, fs.ErrNotExist)
	}
	return []byte(text), nil
}

func (s memSource) Location(p string) string {
	return "mem://" + p
}

// textExtractor treats file bytes as text. Content starting with "BAD" is unreadable.
type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, data []byte) (extract.Text, error) {
	if strings.HasPrefix(string(data), "BAD") {
		return extract.Text{}, fmt.Errorf("%w: not a pdf", extract.ErrUnreadable)
	}
	return extract.Text{Content: string(data), Pages: 1}, nil
}

func setupStore(t *testing.T) storage.Store {
	t.Helper()
	store, _, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func newTestIngester(t *testing.T, store CaseStore, src source.Source) *Ingester {
	t.Helper()
	in, err := NewIngester(store, src, WithExtractor(textExtractor{}), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(in.Release)
	return in
}

func TestNewIngester_RequiresDependencies(t *testing.T) {
	_, err := NewIngester(nil, memSource{})
	assert.ErrorIs(t, err, ErrCaseStoreRequired)

	_, err = NewIngester(setupStore(t), nil)
	assert.ErrorIs(t, err, ErrSourceRequired)
}

func TestIngester_IngestSource(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertCases(ctx, &core.Case{Key: 77, FileID: "58001-7"}))

	src := memSource{
		"opinions/opinion_934.pdf":  appealsOpinion,
		"opinions/99123-4.pdf":      supremeOpinion,
		"opinions/58001-7.pdf":      "The judgment is affirmed.",
		"opinions/order.pdf":        "Order granting extension of time.",
		"opinions/scan_damaged.pdf": "BAD bytes",
	}
	in := newTestIngester(t, store, src)

	report, err := in.IngestSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)

	keys := make([]int64, len(report.Cases))
	for i, c := range report.Cases {
		keys[i] = c.Key
	}
	assert.Equal(t, []int64{77, 934, 991234}, keys)

	require.Len(t, report.Failures, 2)
	assert.Equal(t, "opinions/order.pdf", report.Failures[0].Path)
	assert.Contains(t, report.Failures[0].Error, ErrNoDocket.Error())
	assert.Equal(t, "opinions/scan_damaged.pdf", report.Failures[1].Path)

	c, err := store.GetCase(ctx, 934)
	require.NoError(t, err)
	assert.Equal(t, "83895-4-I", c.FileID)
	assert.Equal(t, "STATE OF WASHINGTON v. JOHN ALLEN DOE", c.Title)
	assert.Equal(t, "Court of Appeals, Division I", c.Court)
	assert.Equal(t, OutcomeReversed, c.AppealOutcome)
	assert.Equal(t, RoleAppellant, c.WinnerLegalRole)

	c, err = store.GetCase(ctx, 991234)
	require.NoError(t, err)
	assert.Equal(t, "Supreme Court", c.Court)
	assert.Equal(t, RoleRespondent, c.WinnerLegalRole)

	c, err = store.GetCase(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, "58001-7", c.FileID)
	assert.Equal(t, OutcomeAffirmed, c.AppealOutcome)

	again, err := in.IngestSource(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Cases, 3)
	cases, err := store.ListCases(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 3, "re-ingesting updates cases in place")
}

func TestIngester_CasesAreLinkTargets(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	in := newTestIngester(t, store, memSource{"opinion_934.pdf": appealsOpinion})

	_, _, err := in.IngestFile(ctx, "opinion_934.pdf")
	require.NoError(t, err)

	l, err := link.New(store)
	require.NoError(t, err)
	res, err := l.Link(ctx, metadata.Parse("2024-briefs/83895-4-I/762508_appellants_reply_brief_934.pdf"))
	require.NoError(t, err)
	require.IsType(t, link.LinkedByBoth{}, res)
	assert.Equal(t, int64(934), link.CaseOf(res).Key)
}

func TestIngester_IngestFileErrors(t *testing.T) {
	store := setupStore(t)
	in := newTestIngester(t, store, memSource{"no-docket.pdf": "We affirm."})
	ctx := context.Background()

	_, op, err := in.IngestFile(ctx, "no-docket.pdf")
	assert.ErrorIs(t, err, ErrNoDocket)
	assert.Equal(t, OutcomeAffirmed, op.Outcome)

	_, _, err = in.IngestFile(ctx, "missing.pdf")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
