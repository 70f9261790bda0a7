package storage

import (
	"fmt"

	"github.com/poiesic/brieflink/core"
)

// BriefID is the identity of the brief ingested from sourceFile.
// Re-ingesting the same file therefore addresses the same row.
func BriefID(sourceFile string) core.ID {
	return core.IDFromString("brief:" + sourceFile)
}

// AssignIDs fills in the identities of a document before it is written.
// Child IDs derive from the brief ID and the child's position, so a
// re-ingested document replaces its children one for one. Chunks inherit the
// brief's case, sentences their chunk's ID and arguments their parent's ID.
func AssignIDs(doc *core.Document) {
	b := &doc.Brief
	b.ID = BriefID(b.SourceFile)

	chunkIDs := make(map[int]core.ID, len(doc.Chunks))
	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		c.ID = childID(b.ID, "chunk", c.Order)
		c.BriefID = b.ID
		c.CaseKey = b.CaseKey
		chunkIDs[c.Order] = c.ID
	}
	for i := range doc.Sentences {
		s := &doc.Sentences[i]
		s.ID = childID(b.ID, "sentence", s.GlobalOrder)
		s.BriefID = b.ID
		s.ChunkID = chunkIDs[s.ChunkOrder]
	}
	for i := range doc.Phrases {
		p := &doc.Phrases[i]
		p.ID = core.IDFromString(fmt.Sprintf("%d:phrase:%s", b.ID, p.Text))
		p.BriefID = b.ID
	}
	for i := range doc.Arguments {
		a := &doc.Arguments[i]
		a.ID = childID(b.ID, "argument", a.Index)
		a.BriefID = b.ID
		a.ParentID = nil
		if a.ParentIndex >= 0 && a.ParentIndex < len(doc.Arguments) {
			parent := doc.Arguments[a.ParentIndex].ID
			a.ParentID = &parent
		}
	}
	for i := range doc.Citations {
		c := &doc.Citations[i]
		c.ID = childID(b.ID, "citation", i)
		c.BriefID = b.ID
	}
}

func childID(briefID core.ID, kind string, n int) core.ID {
	return core.IDFromString(fmt.Sprintf("%d:%s:%d", briefID, kind, n))
}
