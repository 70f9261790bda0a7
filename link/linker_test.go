package link

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/metadata"
	"github.com/poiesic/brieflink/storage"
	"github.com/poiesic/brieflink/storage/badger"
)

func newTestLinker(t *testing.T, cases []*core.Case, opts ...Option) *Linker {
	t.Helper()
	store, _, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	require.NoError(t, store.UpsertCases(context.Background(), cases...))
	l, err := New(store, opts...)
	require.NoError(t, err)
	return l
}

func TestNew_RequiresFinder(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrFinderRequired)
}

func TestLink(t *testing.T) {
	cases := []*core.Case{
		{Key: 934, FileID: "83895-4-I", WinnerLegalRole: "respondent", AppealOutcome: "affirmed"},
		{Key: 501, FileID: "1-2934"},
		{Key: 502, FileID: "47001-7"},
		{Key: 503, FileID: "58001-7"},
	}
	l := newTestLinker(t, cases)
	ctx := context.Background()

	tests := []struct {
		name     string
		folder   string
		filename string
		wantKey  int64
		want     core.LinkStrategy
		match    core.FilenameMatch
	}{
		{
			name:     "folder and filename key corroborate",
			folder:   "83895-4",
			filename: "934",
			wantKey:  934,
			want:     core.LinkBoth,
			match:    core.FilenameMatchKey,
		},
		{
			name:     "folder and filename suffix corroborate",
			folder:   "1-2934",
			filename: "2934",
			wantKey:  501,
			want:     core.LinkBoth,
			match:    core.FilenameMatchSuffix,
		},
		{
			name:     "filename only when folder has no case",
			folder:   "99999-9",
			filename: "934",
			wantKey:  934,
			want:     core.LinkFilename,
			match:    core.FilenameMatchKey,
		},
		{
			name:     "filename suffix only",
			folder:   "",
			filename: "12934",
			wantKey:  501,
			want:     core.LinkFilename,
			match:    core.FilenameMatchSuffix,
		},
		{
			name:     "folder only without filename id",
			folder:   "47001-7",
			filename: "",
			wantKey:  502,
			want:     core.LinkFolder,
		},
		{
			name:     "ambiguous suffix takes lowest key",
			folder:   "",
			filename: "0017",
			wantKey:  502,
			want:     core.LinkFilename,
			match:    core.FilenameMatchSuffix,
		},
		{
			name:     "folder settles ambiguous suffix",
			folder:   "47001-7",
			filename: "0017",
			wantKey:  502,
			want:     core.LinkBoth,
			match:    core.FilenameMatchSuffix,
		},
		{
			name:     "nothing matches",
			folder:   "12345-6",
			filename: "777",
			want:     core.LinkNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.Link(ctx, metadata.Record{FolderCaseID: tt.folder, FilenameCaseID: tt.filename})
			require.NoError(t, err)
			assert.Equal(t, tt.want, StrategyOf(res))

			c := CaseOf(res)
			if tt.want == core.LinkNone {
				assert.IsType(t, Unlinked{}, res)
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.wantKey, c.Key)

			switch v := res.(type) {
			case LinkedByBoth:
				assert.Equal(t, tt.match, v.Match)
			case LinkedByFilename:
				assert.Equal(t, tt.match, v.Match)
			}
		})
	}
}

func TestLink_ConflictPrefersFolder(t *testing.T) {
	l := newTestLinker(t, []*core.Case{
		{Key: 934, FileID: "83895-4"},
		{Key: 10, FileID: "47001-7"},
	})

	res, err := l.Link(context.Background(), metadata.Record{FolderCaseID: "47001-7", FilenameCaseID: "934"})
	require.NoError(t, err)

	v, ok := res.(LinkedByFolder)
	require.True(t, ok)
	assert.Equal(t, int64(10), v.Case.Key)
	require.NotNil(t, v.Conflict)
	assert.Equal(t, int64(934), v.Conflict.Key)
}

func TestLink_MinSuffixDigits(t *testing.T) {
	cases := []*core.Case{{Key: 501, FileID: "1-2934"}}

	res, err := newTestLinker(t, cases).Link(context.Background(), metadata.Record{FilenameCaseID: "934"})
	require.NoError(t, err)
	assert.Equal(t, core.LinkFilename, StrategyOf(res))

	res, err = newTestLinker(t, cases, WithMinSuffixDigits(4)).Link(context.Background(), metadata.Record{FilenameCaseID: "934"})
	require.NoError(t, err)
	assert.Equal(t, core.LinkNone, StrategyOf(res))
}

func TestLink_AmbiguousSuffix(t *testing.T) {
	cases := []*core.Case{
		{Key: 503, FileID: "58001-7"},
		{Key: 502, FileID: "47001-7"},
	}
	rec := metadata.Record{FilenameCaseID: "0017"}

	res, err := newTestLinker(t, cases).Link(context.Background(), rec)
	require.NoError(t, err)
	v, ok := res.(LinkedByFilename)
	require.True(t, ok)
	assert.Equal(t, int64(502), v.Case.Key)
	assert.Equal(t, core.FilenameMatchSuffix, v.Match)
	assert.True(t, v.Ambiguous)

	b := &core.Brief{}
	Apply(res, b)
	assert.Equal(t, core.FilenameMatchSuffix, b.FilenameMatch)
	require.NotNil(t, b.CaseKey)
	assert.Equal(t, int64(502), *b.CaseKey)

	res, err = newTestLinker(t, cases, WithRejectAmbiguousSuffix()).Link(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, Unlinked{}, res)

	res, err = newTestLinker(t, cases[:1], WithRejectAmbiguousSuffix()).Link(context.Background(), rec)
	require.NoError(t, err)
	v, ok = res.(LinkedByFilename)
	require.True(t, ok)
	assert.False(t, v.Ambiguous)
}

type failingFinder struct{}

func (failingFinder) GetCase(context.Context, int64) (*core.Case, error) {
	return nil, storage.ErrNotFound
}

func (failingFinder) FindCaseByNormalizedID(context.Context, string) (*core.Case, error) {
	return nil, errors.New("connection reset")
}

func (failingFinder) FindCasesBySuffix(context.Context, string, int) ([]*core.Case, error) {
	return nil, nil
}

func TestLink_StorageErrorsPropagate(t *testing.T) {
	l, err := New(failingFinder{})
	require.NoError(t, err)

	_, err = l.Link(context.Background(), metadata.Record{FolderCaseID: "83895-4"})
	assert.Error(t, err)

	res, err := l.Link(context.Background(), metadata.Record{FilenameCaseID: "934"})
	require.NoError(t, err)
	assert.IsType(t, Unlinked{}, res)
}

func TestApply(t *testing.T) {
	c := &core.Case{Key: 934, WinnerLegalRole: "respondent", WinnerPersonalRole: "state", AppealOutcome: "affirmed"}

	b := &core.Brief{}
	Apply(LinkedByBoth{Case: c, Match: core.FilenameMatchKey}, b)
	require.NotNil(t, b.CaseKey)
	assert.Equal(t, int64(934), *b.CaseKey)
	assert.Equal(t, core.LinkBoth, b.LinkStrategy)
	assert.Equal(t, core.FilenameMatchKey, b.FilenameMatch)
	assert.Equal(t, "affirmed", b.AppealOutcome)
	assert.True(t, b.IsLinked())

	Apply(Unlinked{}, b)
	assert.Nil(t, b.CaseKey)
	assert.Equal(t, core.LinkNone, b.LinkStrategy)
	assert.False(t, b.IsLinked())
}
