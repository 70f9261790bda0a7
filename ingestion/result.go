package ingestion

import (
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/link"
)

// Outcome is what happened to one source file.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Stage names a step of the per-document pipeline.
type Stage string

const (
	StageRead       Stage = "read"
	StageExtract    Stage = "extract"
	StageLink       Stage = "link"
	StageAnalyze    Stage = "analyze"
	StageEmbed      Stage = "embed"
	StagePersist    Stage = "persist"
	StageCheckpoint Stage = "checkpoint"
)

// Result reports the ingestion of one source file.
type Result struct {
	SourceFile string
	BriefID    core.ID
	Outcome    Outcome

	// Stage is the step that failed or degraded; empty on a clean run.
	Stage Stage
	Err   error
	Note  string

	Link    link.Result
	CaseKey *int64

	Chunks    int
	Sentences int
	Phrases   int
	Arguments int
	Citations int
	Words     int
	Pages     int

	Duration time.Duration
}

// Linked reports whether the brief was linked to a case.
func (r Result) Linked() bool {
	return r.CaseKey != nil
}

// FailedFile is one entry of a batch failure report.
type FailedFile struct {
	SourceFile string
	Stage      Stage
	Error      string
}

// Summary aggregates the results of a batch.
type Summary struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time

	Total     int
	Completed int
	Partial   int
	Failed    int
	Skipped   int
	Linked    int

	FailedFiles []FailedFile
	Results     []Result
}

// Processed counts files that produced a stored document.
func (s *Summary) Processed() int {
	return s.Completed + s.Partial
}

// Duration is the wall time of the batch.
func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

func newSummary() *Summary {
	return &Summary{RunID: uuid.New(), Started: time.Now().UTC()}
}

func (s *Summary) add(r Result) {
	s.Total++
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeCompleted:
		s.Completed++
	case OutcomePartial:
		s.Partial++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		s.FailedFiles = append(s.FailedFiles, FailedFile{SourceFile: r.SourceFile, Stage: r.Stage, Error: msg})
	}
	if r.Linked() && (r.Outcome == OutcomeCompleted || r.Outcome == OutcomePartial) {
		s.Linked++
	}
}
