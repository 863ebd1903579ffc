// Package graph assembles a flat issue list, each issue carrying the
// relationship records it is the source of, into per-issue
// parent/children/blocks/blocked-by collections for board display.
package graph

import (
	"github.com/steveyegge/bdboard/internal/types"
)

// Assemble is a pure two-pass transformation, O(issues + edges).
//
// Pass 1 indexes every relationship record: a parent-child edge on A
// pointing at B records A as B's parent and B among A's children; a
// blocks edge on A pointing at B records A among B's blockers and B
// among A's blockees. Pass 2 attaches the indexed collections to each
// issue and computes readiness.
//
// Malformed input is taken as given rather than repaired here:
// conflicting parent-child records naming the same child keep the
// last-processed parent (matches observed bd behavior; a known
// data-quality gap upstream), and self-referential edges flow through
// unfiltered. Edge targets outside the issue list still yield refs,
// with the title carried on the relationship record.
func Assemble(issues []*types.Issue) []*types.BoardCard {
	parentOf := make(map[string]types.CardRef)
	childrenOf := make(map[string][]types.CardRef)
	blocksOf := make(map[string][]types.CardRef)
	blockedByOf := make(map[string][]types.CardRef)

	titles := make(map[string]string, len(issues))
	for _, iss := range issues {
		titles[iss.ID] = iss.Title
	}

	ref := func(id, recordTitle string) types.CardRef {
		title := recordTitle
		if t, ok := titles[id]; ok {
			title = t
		}
		return types.CardRef{ID: id, Title: title}
	}

	// Pass 1: index relationships.
	for _, iss := range issues {
		for _, dep := range iss.Dependencies {
			other := dep.TargetID
			switch dep.Type {
			case types.DepParentChild:
				// iss is the parent of other; last record wins on conflict.
				parentOf[other] = ref(iss.ID, "")
				childrenOf[iss.ID] = append(childrenOf[iss.ID], ref(other, dep.TargetTitle))
			case types.DepBlocks:
				// iss blocks other.
				blockedByOf[other] = append(blockedByOf[other], ref(iss.ID, ""))
				blocksOf[iss.ID] = append(blocksOf[iss.ID], ref(other, dep.TargetTitle))
			}
		}
	}

	// Pass 2: attach.
	cards := make([]*types.BoardCard, 0, len(issues))
	for _, iss := range issues {
		card := &types.BoardCard{Issue: iss}
		if p, ok := parentOf[iss.ID]; ok {
			parent := p
			card.Parent = &parent
		}
		card.Children = childrenOf[iss.ID]
		card.Blocks = blocksOf[iss.ID]
		card.BlockedBy = blockedByOf[iss.ID]
		card.IsReady = iss.Status == types.StatusOpen && len(card.BlockedBy) == 0
		cards = append(cards, card)
	}
	return cards
}

// Partition buckets assembled cards into board columns, preserving
// input order within each column.
func Partition(cards []*types.BoardCard) map[types.Column][]*types.BoardCard {
	cols := make(map[types.Column][]*types.BoardCard, 4)
	for _, col := range types.Columns() {
		cols[col] = []*types.BoardCard{}
	}
	for _, card := range cards {
		col := types.ColumnForCard(card)
		cols[col] = append(cols[col], card)
	}
	return cols
}
