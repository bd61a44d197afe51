package search

import (
	"sort"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

// mergeResults unions two Results by FileId: per spec §4.9's Any(L)
// rule, a commit matches if any branch's full token set was present, so
// overlapping files get their commit bitmaps unioned and their query
// tokens combined.
func mergeResults(a, b *Result) *Result {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	byFile := make(map[plumbing.FileID]RawPerFileResult, len(a.Files)+len(b.Files))
	order := make([]plumbing.FileID, 0, len(a.Files)+len(b.Files))
	add := func(r RawPerFileResult) {
		existing, ok := byFile[r.FileID]
		if !ok {
			byFile[r.FileID] = r
			order = append(order, r.FileID)
			return
		}
		byFile[r.FileID] = RawPerFileResult{
			FileID:       r.FileID,
			CommitBitmap: bitset.Union(existing.CommitBitmap, r.CommitBitmap),
			QueryTokens:  dedupTokens(append(append([]tokenize.Token{}, existing.QueryTokens...), r.QueryTokens...)),
		}
	}
	for _, r := range a.Files {
		add(r)
	}
	for _, r := range b.Files {
		add(r)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]RawPerFileResult, 0, len(order))
	for _, id := range order {
		out = append(out, byFile[id])
	}
	return &Result{Files: out, Truncated: a.Truncated || b.Truncated}
}

func dedupTokens(in []tokenize.Token) []tokenize.Token {
	seen := make(map[tokenize.Token]struct{}, len(in))
	out := in[:0]
	for _, t := range in {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
