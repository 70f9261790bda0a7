package link

import (
	"github.com/poiesic/brieflink/core"
)

// Result is the outcome of linking one brief. It is one of Unlinked,
// LinkedByFolder, LinkedByFilename or LinkedByBoth.
type Result interface {
	isResult()
}

// Unlinked means neither strategy found a case.
type Unlinked struct{}

// LinkedByFolder means only the case folder resolved. Conflict is set when the
// filename resolved to a different case, which the folder overrides.
type LinkedByFolder struct {
	Case     *core.Case
	Conflict *core.Case
}

// LinkedByFilename means only the filename id resolved. Ambiguous is set when
// the suffix matched more than one case and the lowest key was chosen.
type LinkedByFilename struct {
	Case      *core.Case
	Match     core.FilenameMatch
	Ambiguous bool
}

// LinkedByBoth means folder and filename resolved to the same case.
type LinkedByBoth struct {
	Case      *core.Case
	Match     core.FilenameMatch
	Ambiguous bool
}

func (Unlinked) isResult()         {}
func (LinkedByFolder) isResult()   {}
func (LinkedByFilename) isResult() {}
func (LinkedByBoth) isResult()     {}

// CaseOf returns the linked case, or nil when r is Unlinked.
func CaseOf(r Result) *core.Case {
	switch v := r.(type) {
	case LinkedByFolder:
		return v.Case
	case LinkedByFilename:
		return v.Case
	case LinkedByBoth:
		return v.Case
	}
	return nil
}

// StrategyOf returns the provenance tag stored on the brief.
func StrategyOf(r Result) core.LinkStrategy {
	switch r.(type) {
	case LinkedByFolder:
		return core.LinkFolder
	case LinkedByFilename:
		return core.LinkFilename
	case LinkedByBoth:
		return core.LinkBoth
	}
	return core.LinkNone
}

// Apply records r on b: the case reference, provenance and the case's outcome data.
func Apply(r Result, b *core.Brief) {
	b.CaseKey = nil
	b.LinkStrategy = StrategyOf(r)
	b.FilenameMatch = core.FilenameMatchNone

	switch v := r.(type) {
	case LinkedByFilename:
		b.FilenameMatch = v.Match
	case LinkedByBoth:
		b.FilenameMatch = v.Match
	}

	c := CaseOf(r)
	if c == nil {
		return
	}
	key := c.Key
	b.CaseKey = &key
	b.WinnerLegalRole = c.WinnerLegalRole
	b.WinnerPersonalRole = c.WinnerPersonalRole
	b.AppealOutcome = c.AppealOutcome
}
