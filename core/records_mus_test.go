package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBriefMUS_OptionalFields(t *testing.T) {
	key := int64(42)
	parent := ID(99)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		brief Brief
	}{
		{
			name:  "unlinked and unchained",
			brief: Brief{ID: 1, SourceFile: "a.pdf", Status: StatusProcessing, Sequence: 1},
		},
		{
			name: "linked and chained",
			brief: Brief{
				ID:             2,
				CaseKey:        &key,
				LinkStrategy:   LinkBoth,
				FilenameMatch:  FilenameMatchSuffix,
				FolderCaseID:   "12893-4",
				FilenameCaseID: "934",
				Party:          PartyAppellant,
				Role:           RoleReply,
				Sequence:       3,
				RespondsTo:     &parent,
				Issues:         []string{"whether the trial court erred"},
				SourceFile:     "2019-briefs/12893-4/reply_934.pdf",
				Status:         StatusCompleted,
				Embedding:      []float32{0.25, -1.5, 0},
				CreatedAt:      created,
				UpdatedAt:      created,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := BriefMUS.Encode(tt.brief)
			got, err := BriefMUS.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.brief) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.brief)
			}
		})
	}
}

func TestRecordSer_RejectsCorruptInput(t *testing.T) {
	data := CitationMUS.Encode(Citation{Text: "RCW 9A.36.021", Pages: []int{3, 4}})

	if _, err := CitationMUS.Decode(data[:len(data)-1]); err == nil {
		t.Error("Decode() of truncated record should fail")
	}

	if _, err := CitationMUS.Decode(append(data, 0)); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("Decode() with trailing byte error = %v, want ErrTrailingBytes", err)
	}
}
