package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(content []byte) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(content)
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromString is IDFromContent for text.
func IDFromString(text string) ID {
	return IDFromContent([]byte(text))
}

// Party identifies which side filed a brief.
type Party int

const (
	PartyUnknown Party = iota
	PartyAppellant
	PartyRespondent
)

func (p Party) String() string {
	switch p {
	case PartyAppellant:
		return "Appellant"
	case PartyRespondent:
		return "Respondent"
	default:
		return "Unknown"
	}
}

// ParseParty is the inverse of Party.String. Unrecognized values map to PartyUnknown.
func ParseParty(s string) Party {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "appellant", "petitioner":
		return PartyAppellant
	case "respondent":
		return PartyRespondent
	default:
		return PartyUnknown
	}
}

// BriefRole is the position a brief occupies in the exchange between parties.
type BriefRole int

const (
	RoleUnknown BriefRole = iota
	RoleOpening
	RoleResponse
	RoleReply
	RoleSupplementalResponse
	RoleSupplementalReply
	RoleAmendedResponse
	RoleAmendedReply
	RoleSupplemental
	RoleAmended
	RoleAdditionalGrounds
)

var roleNames = map[BriefRole]string{
	RoleUnknown:              "Unknown",
	RoleOpening:              "Opening",
	RoleResponse:             "Response",
	RoleReply:                "Reply",
	RoleSupplementalResponse: "Supplemental Response",
	RoleSupplementalReply:    "Supplemental Reply",
	RoleAmendedResponse:      "Amended Response",
	RoleAmendedReply:         "Amended Reply",
	RoleSupplemental:         "Supplemental Brief",
	RoleAmended:              "Amended Brief",
	RoleAdditionalGrounds:    "Statement of Additional Grounds",
}

func (r BriefRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleUnknown]
}

// ParseBriefRole is the inverse of BriefRole.String, case-insensitive.
func ParseBriefRole(s string) BriefRole {
	s = strings.TrimSpace(s)
	for role, name := range roleNames {
		if strings.EqualFold(name, s) {
			return role
		}
	}
	return RoleUnknown
}

// ProcessingStatus tracks how far ingestion got for a brief.
type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	// StatusPartial means structure was stored but an external capability
	// (embedding or analysis) failed; the missing fields can be backfilled.
	StatusPartial ProcessingStatus = "partial"
	StatusFailed  ProcessingStatus = "failed"
)

// LinkStrategy records which linking strategy produced a brief's case reference.
type LinkStrategy string

const (
	LinkNone     LinkStrategy = "none"
	LinkFolder   LinkStrategy = "folder"
	LinkFilename LinkStrategy = "filename"
	LinkBoth     LinkStrategy = "both"
)

// FilenameMatch records how a filename-embedded id matched its case.
type FilenameMatch string

const (
	FilenameMatchNone   FilenameMatch = ""
	FilenameMatchKey    FilenameMatch = "key"
	FilenameMatchSuffix FilenameMatch = "suffix"
)

// Section labels assigned to chunks.
const (
	SectionUnlabeled          = "UNLABELED"
	SectionTableOfContents    = "TABLE_OF_CONTENTS"
	SectionTableOfAuthorities = "TABLE_OF_AUTHORITIES"
	SectionIntroduction       = "INTRODUCTION"
	SectionAssignmentsOfError = "ASSIGNMENTS_OF_ERROR"
	SectionIssues             = "ISSUES"
	SectionStatementOfCase    = "STATEMENT_OF_CASE"
	SectionStatementOfFacts   = "STATEMENT_OF_FACTS"
	SectionSummaryOfArgument  = "SUMMARY_OF_ARGUMENT"
	SectionArgument           = "ARGUMENT"
	SectionConclusion         = "CONCLUSION"
	SectionAppendix           = "APPENDIX"
)

// Case is a court proceeding that briefs can be linked to.
type Case struct {
	Key                int64  // raw numeric key assigned by the store
	FileID             string // docket number as issued, e.g. "83895-4-I"
	NormalizedID       string // digits-only form of FileID
	Title              string
	Court              string
	WinnerLegalRole    string
	WinnerPersonalRole string
	AppealOutcome      string
	CreatedAt          time.Time
}

// Brief is a party-filed document, linked to zero or one Case.
type Brief struct {
	ID               ID
	CaseKey          *int64
	LinkStrategy     LinkStrategy
	FilenameMatch    FilenameMatch
	FolderCaseID     string
	FilenameCaseID   string // empty when the filename carries no numeric id
	NormalizedCaseID string
	Party            Party
	Role             BriefRole
	SequenceToken    string
	Sequence         int // position in the conversation, 1 until chained
	RespondsTo       *ID
	Year             int
	PageCount        int
	WordCount        int
	Summary          string
	Issues           []string
	FullText         string
	SourceFile       string // natural key
	SourcePath       string
	ContentID        ID
	Status           ProcessingStatus
	StatusNote       string

	WinnerLegalRole    string
	WinnerPersonalRole string
	AppealOutcome      string

	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLinked reports whether the brief has a case reference.
func (b *Brief) IsLinked() bool {
	return b.CaseKey != nil
}

// Chunk is an ordered span of a brief's text.
type Chunk struct {
	ID         ID
	BriefID    ID
	CaseKey    *int64
	Order      int // 1..N within the brief
	Start, End int // byte offsets into the source text
	Text       string
	Section    string
	WordCount  int
	CharCount  int
	Embedding  []float32
}

// Sentence is a sentence within a chunk.
type Sentence struct {
	ID          ID
	BriefID     ID
	ChunkID     ID
	ChunkOrder  int
	Order       int // within the chunk
	GlobalOrder int // within the brief
	Text        string
	WordCount   int
	Embedding   []float32
}

// Phrase is a distinct n-gram of a brief with its frequency and first occurrence.
type Phrase struct {
	ID                ID
	BriefID           ID
	Text              string
	Length            int
	Frequency         int
	ExampleChunkOrder int
	ExampleSentence   int // global sentence order
}

// Argument is a node of a brief's argument outline.
//
// Index and ParentIndex address the node within one document's arena;
// ParentIndex is -1 for top-level nodes. ID and ParentID are assigned by the store.
type Argument struct {
	ID          ID
	BriefID     ID
	ParentID    *ID
	Index       int
	ParentIndex int
	Level       int
	Marker      string
	Path        string
	Title       string
	Position    int
	Line        int
}

// CitationKind classifies an authority.
type CitationKind string

const (
	CitationCase         CitationKind = "case"
	CitationStatute      CitationKind = "statute"
	CitationRule         CitationKind = "rule"
	CitationConstitution CitationKind = "constitution"
	CitationOther        CitationKind = "other"
)

// Citation is a reference to case law or statute found in a brief.
// HighConfidence is set for entries taken from a Table of Authorities.
type Citation struct {
	ID             ID
	BriefID        ID
	Text           string
	Kind           CitationKind
	HighConfidence bool
	Pages          []int
	Reporter       string
	Volume         string
	Page           string
	Occurrences    int
	Offset         int
}

// WordOccurrence is one indexed token position within a chunk.
type WordOccurrence struct {
	Word       string
	ChunkOrder int
	Position   int
}

// Document is everything produced from one source file, persisted in one transaction.
type Document struct {
	Brief     Brief
	Chunks    []Chunk
	Sentences []Sentence
	Phrases   []Phrase
	Arguments []Argument
	Citations []Citation
	Words     []WordOccurrence
}

// Checkpoint records that a processor finished with a source file.
type Checkpoint struct {
	ProcessorType string
	SourceFile    string
	ContentID     ID
	BriefID       ID
	Status        ProcessingStatus
	UpdatedAt     time.Time
}

// ChunkMatch is a chunk returned from similarity search.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}

// PhraseMatch is a phrase returned from phrase search, with its brief's case.
type PhraseMatch struct {
	Phrase  *Phrase
	CaseKey *int64
}
