// Package chain reconstructs the order in which the briefs of a case answer
// one another.
//
// Chaining runs after ingestion, over briefs already committed, so a reply
// ingested before its opening brief is linked on a later run. Back-references
// are only ever set when still null, through the store's compare-and-set, so
// the pass can be repeated and run concurrently without changing earlier
// assignments.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/brieflink/core"
)

// Store is the subset of storage.BriefRepository the builder needs.
type Store interface {
	ListBriefsByCase(ctx context.Context, caseKey int64) ([]*core.Brief, error)
	ListLinkedCaseKeys(ctx context.Context) ([]int64, error)
	ClaimBackReference(ctx context.Context, briefID, parentID core.ID, sequence int) (bool, error)
}

// ErrStoreRequired is returned by New when no Store is given.
var ErrStoreRequired = errors.New("brief store is required")

// rule says which role a responsive brief answers and the sequence it takes.
type rule struct {
	parent   core.BriefRole
	sequence int
}

var rules = map[core.BriefRole]rule{
	core.RoleResponse:             {parent: core.RoleOpening, sequence: 2},
	core.RoleSupplementalResponse: {parent: core.RoleOpening, sequence: 2},
	core.RoleAmendedResponse:      {parent: core.RoleOpening, sequence: 2},
	core.RoleReply:                {parent: core.RoleResponse, sequence: 3},
	core.RoleSupplementalReply:    {parent: core.RoleResponse, sequence: 3},
	core.RoleAmendedReply:         {parent: core.RoleResponse, sequence: 3},
}

// Report summarizes one chaining pass over a case.
type Report struct {
	CaseKey int64

	// Examined counts briefs whose role answers another brief.
	Examined int
	// Linked counts back-references set by this pass.
	Linked int
	// AlreadyLinked counts briefs that had a back-reference before the pass.
	AlreadyLinked int
	// Pending counts briefs whose parent role has no brief yet.
	Pending int
	// LostClaims counts briefs another writer linked first.
	LostClaims int
}

// Builder runs chaining passes. It is safe for concurrent use.
type Builder struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Builder.
func New(store Store, opts ...Option) (*Builder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	b := &Builder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "chain")
	return b, nil
}

// ChainCase links every unchained responsive brief of a case to the most
// recent brief of the role it answers.
func (b *Builder) ChainCase(ctx context.Context, caseKey int64) (Report, error) {
	report := Report{CaseKey: caseKey}

	briefs, err := b.store.ListBriefsByCase(ctx, caseKey)
	if err != nil {
		return report, fmt.Errorf("list briefs of case %d: %w", caseKey, err)
	}

	latest := latestByRole(briefs)
	for _, brief := range briefs {
		r, ok := rules[brief.Role]
		if !ok {
			continue
		}
		report.Examined++

		if brief.RespondsTo != nil {
			report.AlreadyLinked++
			continue
		}
		parent, ok := latest[r.parent]
		if !ok {
			report.Pending++
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
		claimed, err := b.store.ClaimBackReference(ctx, brief.ID, parent.ID, r.sequence)
		if err != nil {
			return report, fmt.Errorf("claim back-reference for %s: %w", brief.SourceFile, err)
		}
		if !claimed {
			report.LostClaims++
			continue
		}
		report.Linked++
		b.logger.Debug("brief chained",
			"case", caseKey,
			"brief", brief.SourceFile,
			"role", brief.Role.String(),
			"responds_to", parent.SourceFile)
	}

	if report.Linked > 0 || report.Pending > 0 {
		b.logger.Info("case chained",
			"case", caseKey,
			"linked", report.Linked,
			"already_linked", report.AlreadyLinked,
			"pending", report.Pending,
			"lost_claims", report.LostClaims)
	}
	return report, nil
}

// ChainAll runs ChainCase for every case that has briefs. A failing case does
// not stop the others; their errors are joined.
func (b *Builder) ChainAll(ctx context.Context) ([]Report, error) {
	keys, err := b.store.ListLinkedCaseKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	reports := make([]Report, 0, len(keys))
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := b.ChainCase(ctx, key)
		if err != nil {
			b.logger.Error("chaining failed", "case", key, "error", err)
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// latestByRole picks the most recently created brief of each role.
// Ties on CreatedAt go to the higher ID.
func latestByRole(briefs []*core.Brief) map[core.BriefRole]*core.Brief {
	latest := make(map[core.BriefRole]*core.Brief)
	for _, b := range briefs {
		cur, ok := latest[b.Role]
		if !ok || b.CreatedAt.After(cur.CreatedAt) || (b.CreatedAt.Equal(cur.CreatedAt) && b.ID > cur.ID) {
			latest[b.Role] = b
		}
	}
	return latest
}
