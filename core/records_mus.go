package core

import (
	"errors"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// ErrTrailingBytes indicates a record decoded cleanly but left input unread.
var ErrTrailingBytes = errors.New("trailing bytes after record")

// Record serializers. Each one satisfies the mus-go Serializer shape
// (Marshal, Unmarshal, Size, Skip) so storage code can treat them uniformly.
var (
	IDMUS         = idSer{}
	CaseMUS       = recordSer[Case]{encodeCase, decodeCase}
	BriefMUS      = recordSer[Brief]{encodeBrief, decodeBrief}
	ChunkMUS      = recordSer[Chunk]{encodeChunk, decodeChunk}
	SentenceMUS   = recordSer[Sentence]{encodeSentence, decodeSentence}
	PhraseMUS     = recordSer[Phrase]{encodePhrase, decodePhrase}
	ArgumentMUS   = recordSer[Argument]{encodeArgument, decodeArgument}
	CitationMUS   = recordSer[Citation]{encodeCitation, decodeCitation}
	WordMUS       = recordSer[WordOccurrence]{encodeWord, decodeWord}
	CheckpointMUS = recordSer[Checkpoint]{encodeCheckpoint, decodeCheckpoint}
)

type idSer struct{}

func (idSer) Marshal(v ID, bs []byte) int { return varint.Uint64.Marshal(uint64(v), bs) }
func (idSer) Size(v ID) int               { return varint.Uint64.Size(uint64(v)) }
func (idSer) Skip(bs []byte) (int, error) { return varint.Uint64.Skip(bs) }

func (idSer) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

type recordSer[T any] struct {
	enc func(*musWriter, *T)
	dec func(*musReader, *T)
}

func (s recordSer[T]) Size(v T) int {
	w := musWriter{sizing: true}
	s.enc(&w, &v)
	return w.n
}

func (s recordSer[T]) Marshal(v T, bs []byte) int {
	w := musWriter{buf: bs}
	s.enc(&w, &v)
	return w.n
}

func (s recordSer[T]) Unmarshal(bs []byte) (T, int, error) {
	var v T
	r := musReader{buf: bs}
	s.dec(&r, &v)
	return v, r.n, r.err
}

func (s recordSer[T]) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// Encode is Size followed by Marshal into a fresh buffer.
func (s recordSer[T]) Encode(v T) []byte {
	buf := make([]byte, s.Size(v))
	s.Marshal(v, buf)
	return buf
}

// Decode unmarshals a complete record, rejecting trailing input.
func (s recordSer[T]) Decode(bs []byte) (T, error) {
	v, n, err := s.Unmarshal(bs)
	if err == nil && n != len(bs) {
		err = ErrTrailingBytes
	}
	return v, err
}

// musWriter marshals primitives in sequence. In sizing mode it only counts.
type musWriter struct {
	buf    []byte
	n      int
	sizing bool
}

func (w *musWriter) u64(v uint64) {
	if w.sizing {
		w.n += varint.Uint64.Size(v)
		return
	}
	w.n += varint.Uint64.Marshal(v, w.buf[w.n:])
}

func (w *musWriter) i64(v int64) {
	if w.sizing {
		w.n += varint.Int64.Size(v)
		return
	}
	w.n += varint.Int64.Marshal(v, w.buf[w.n:])
}

func (w *musWriter) int(v int) { w.i64(int64(v)) }

func (w *musWriter) str(v string) {
	if w.sizing {
		w.n += ord.String.Size(v)
		return
	}
	w.n += ord.String.Marshal(v, w.buf[w.n:])
}

func (w *musWriter) bool(v bool) {
	if w.sizing {
		w.n += ord.Bool.Size(v)
		return
	}
	w.n += ord.Bool.Marshal(v, w.buf[w.n:])
}

func (w *musWriter) time(v time.Time) {
	if v.IsZero() {
		w.i64(0)
		return
	}
	w.i64(v.UnixMicro())
}

func (w *musWriter) optID(v *ID) {
	w.bool(v != nil)
	if v != nil {
		w.u64(uint64(*v))
	}
}

func (w *musWriter) optI64(v *int64) {
	w.bool(v != nil)
	if v != nil {
		w.i64(*v)
	}
}

func (w *musWriter) vector(v []float32) {
	w.int(len(v))
	for _, f := range v {
		w.u64(uint64(math.Float32bits(f)))
	}
}

func (w *musWriter) strs(v []string) {
	w.int(len(v))
	for _, s := range v {
		w.str(s)
	}
}

func (w *musWriter) ints(v []int) {
	w.int(len(v))
	for _, i := range v {
		w.int(i)
	}
}

// musReader unmarshals primitives in sequence. The first error sticks.
type musReader struct {
	buf []byte
	n   int
	err error
}

func (r *musReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.buf[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.buf[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) int() int { return int(r.i64()) }

func (r *musReader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.buf[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.buf[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *musReader) time() time.Time {
	us := r.i64()
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func (r *musReader) optID() *ID {
	if !r.bool() {
		return nil
	}
	id := ID(r.u64())
	return &id
}

func (r *musReader) optI64() *int64 {
	if !r.bool() {
		return nil
	}
	v := r.i64()
	return &v
}

// length reads a collection length and bounds it by the remaining input,
// since every element takes at least one byte.
func (r *musReader) length() int {
	l := r.int()
	if r.err == nil && (l < 0 || l > len(r.buf)-r.n) {
		r.err = errors.New("invalid collection length")
	}
	if r.err != nil {
		return 0
	}
	return l
}

func (r *musReader) vector() []float32 {
	l := r.length()
	if l == 0 {
		return nil
	}
	v := make([]float32, l)
	for i := range v {
		v[i] = math.Float32frombits(uint32(r.u64()))
	}
	return v
}

func (r *musReader) strs() []string {
	l := r.length()
	if l == 0 {
		return nil
	}
	v := make([]string, l)
	for i := range v {
		v[i] = r.str()
	}
	return v
}

func (r *musReader) ints() []int {
	l := r.length()
	if l == 0 {
		return nil
	}
	v := make([]int, l)
	for i := range v {
		v[i] = r.int()
	}
	return v
}

func encodeCase(w *musWriter, c *Case) {
	w.i64(c.Key)
	w.str(c.FileID)
	w.str(c.NormalizedID)
	w.str(c.Title)
	w.str(c.Court)
	w.str(c.WinnerLegalRole)
	w.str(c.WinnerPersonalRole)
	w.str(c.AppealOutcome)
	w.time(c.CreatedAt)
}

func decodeCase(r *musReader, c *Case) {
	c.Key = r.i64()
	c.FileID = r.str()
	c.NormalizedID = r.str()
	c.Title = r.str()
	c.Court = r.str()
	c.WinnerLegalRole = r.str()
	c.WinnerPersonalRole = r.str()
	c.AppealOutcome = r.str()
	c.CreatedAt = r.time()
}

func encodeBrief(w *musWriter, b *Brief) {
	w.u64(uint64(b.ID))
	w.optI64(b.CaseKey)
	w.str(string(b.LinkStrategy))
	w.str(string(b.FilenameMatch))
	w.str(b.FolderCaseID)
	w.str(b.FilenameCaseID)
	w.str(b.NormalizedCaseID)
	w.int(int(b.Party))
	w.int(int(b.Role))
	w.str(b.SequenceToken)
	w.int(b.Sequence)
	w.optID(b.RespondsTo)
	w.int(b.Year)
	w.int(b.PageCount)
	w.int(b.WordCount)
	w.str(b.Summary)
	w.strs(b.Issues)
	w.str(b.FullText)
	w.str(b.SourceFile)
	w.str(b.SourcePath)
	w.u64(uint64(b.ContentID))
	w.str(string(b.Status))
	w.str(b.StatusNote)
	w.str(b.WinnerLegalRole)
	w.str(b.WinnerPersonalRole)
	w.str(b.AppealOutcome)
	w.vector(b.Embedding)
	w.time(b.CreatedAt)
	w.time(b.UpdatedAt)
}

func decodeBrief(r *musReader, b *Brief) {
	b.ID = ID(r.u64())
	b.CaseKey = r.optI64()
	b.LinkStrategy = LinkStrategy(r.str())
	b.FilenameMatch = FilenameMatch(r.str())
	b.FolderCaseID = r.str()
	b.FilenameCaseID = r.str()
	b.NormalizedCaseID = r.str()
	b.Party = Party(r.int())
	b.Role = BriefRole(r.int())
	b.SequenceToken = r.str()
	b.Sequence = r.int()
	b.RespondsTo = r.optID()
	b.Year = r.int()
	b.PageCount = r.int()
	b.WordCount = r.int()
	b.Summary = r.str()
	b.Issues = r.strs()
	b.FullText = r.str()
	b.SourceFile = r.str()
	b.SourcePath = r.str()
	b.ContentID = ID(r.u64())
	b.Status = ProcessingStatus(r.str())
	b.StatusNote = r.str()
	b.WinnerLegalRole = r.str()
	b.WinnerPersonalRole = r.str()
	b.AppealOutcome = r.str()
	b.Embedding = r.vector()
	b.CreatedAt = r.time()
	b.UpdatedAt = r.time()
}

func encodeChunk(w *musWriter, c *Chunk) {
	w.u64(uint64(c.ID))
	w.u64(uint64(c.BriefID))
	w.optI64(c.CaseKey)
	w.int(c.Order)
	w.int(c.Start)
	w.int(c.End)
	w.str(c.Text)
	w.str(c.Section)
	w.int(c.WordCount)
	w.int(c.CharCount)
	w.vector(c.Embedding)
}

func decodeChunk(r *musReader, c *Chunk) {
	c.ID = ID(r.u64())
	c.BriefID = ID(r.u64())
	c.CaseKey = r.optI64()
	c.Order = r.int()
	c.Start = r.int()
	c.End = r.int()
	c.Text = r.str()
	c.Section = r.str()
	c.WordCount = r.int()
	c.CharCount = r.int()
	c.Embedding = r.vector()
}

func encodeSentence(w *musWriter, s *Sentence) {
	w.u64(uint64(s.ID))
	w.u64(uint64(s.BriefID))
	w.u64(uint64(s.ChunkID))
	w.int(s.ChunkOrder)
	w.int(s.Order)
	w.int(s.GlobalOrder)
	w.str(s.Text)
	w.int(s.WordCount)
	w.vector(s.Embedding)
}

func decodeSentence(r *musReader, s *Sentence) {
	s.ID = ID(r.u64())
	s.BriefID = ID(r.u64())
	s.ChunkID = ID(r.u64())
	s.ChunkOrder = r.int()
	s.Order = r.int()
	s.GlobalOrder = r.int()
	s.Text = r.str()
	s.WordCount = r.int()
	s.Embedding = r.vector()
}

func encodePhrase(w *musWriter, p *Phrase) {
	w.u64(uint64(p.ID))
	w.u64(uint64(p.BriefID))
	w.str(p.Text)
	w.int(p.Length)
	w.int(p.Frequency)
	w.int(p.ExampleChunkOrder)
	w.int(p.ExampleSentence)
}

func decodePhrase(r *musReader, p *Phrase) {
	p.ID = ID(r.u64())
	p.BriefID = ID(r.u64())
	p.Text = r.str()
	p.Length = r.int()
	p.Frequency = r.int()
	p.ExampleChunkOrder = r.int()
	p.ExampleSentence = r.int()
}

func encodeArgument(w *musWriter, a *Argument) {
	w.u64(uint64(a.ID))
	w.u64(uint64(a.BriefID))
	w.optID(a.ParentID)
	w.int(a.Index)
	w.int(a.ParentIndex)
	w.int(a.Level)
	w.str(a.Marker)
	w.str(a.Path)
	w.str(a.Title)
	w.int(a.Position)
	w.int(a.Line)
}

func decodeArgument(r *musReader, a *Argument) {
	a.ID = ID(r.u64())
	a.BriefID = ID(r.u64())
	a.ParentID = r.optID()
	a.Index = r.int()
	a.ParentIndex = r.int()
	a.Level = r.int()
	a.Marker = r.str()
	a.Path = r.str()
	a.Title = r.str()
	a.Position = r.int()
	a.Line = r.int()
}

func encodeCitation(w *musWriter, c *Citation) {
	w.u64(uint64(c.ID))
	w.u64(uint64(c.BriefID))
	w.str(c.Text)
	w.str(string(c.Kind))
	w.bool(c.HighConfidence)
	w.ints(c.Pages)
	w.str(c.Reporter)
	w.str(c.Volume)
	w.str(c.Page)
	w.int(c.Occurrences)
	w.int(c.Offset)
}

func decodeCitation(r *musReader, c *Citation) {
	c.ID = ID(r.u64())
	c.BriefID = ID(r.u64())
	c.Text = r.str()
	c.Kind = CitationKind(r.str())
	c.HighConfidence = r.bool()
	c.Pages = r.ints()
	c.Reporter = r.str()
	c.Volume = r.str()
	c.Page = r.str()
	c.Occurrences = r.int()
	c.Offset = r.int()
}

func encodeWord(w *musWriter, o *WordOccurrence) {
	w.str(o.Word)
	w.int(o.ChunkOrder)
	w.int(o.Position)
}

func decodeWord(r *musReader, o *WordOccurrence) {
	o.Word = r.str()
	o.ChunkOrder = r.int()
	o.Position = r.int()
}

func encodeCheckpoint(w *musWriter, c *Checkpoint) {
	w.str(c.ProcessorType)
	w.str(c.SourceFile)
	w.u64(uint64(c.ContentID))
	w.u64(uint64(c.BriefID))
	w.str(string(c.Status))
	w.time(c.UpdatedAt)
}

func decodeCheckpoint(r *musReader, c *Checkpoint) {
	c.ProcessorType = r.str()
	c.SourceFile = r.str()
	c.ContentID = ID(r.u64())
	c.BriefID = ID(r.u64())
	c.Status = ProcessingStatus(r.str())
	c.UpdatedAt = r.time()
}
