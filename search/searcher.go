// Package search implements the Searcher (spec §4.9): resolving a query
// to candidate files, intersecting per-token commit bitmaps, and
// enumerating trigram permutations for regex queries.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/index"
	"github.com/kev0960/crep/internal/lru"
	"github.com/kev0960/crep/internal/trace"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

// shortTokenCacheSize is spec §4.9's K=64: "cache the most recent K=64
// lookups for short tokens."
const shortTokenCacheSize = 64

// Searcher answers queries against a single immutable GitIndex. A
// Searcher is safe for concurrent use by many callers (spec §5); its only
// mutable state is the short-token lookup cache, which is itself
// concurrency-safe.
type Searcher struct {
	gi         *index.GitIndex
	shortCache *lru.Cache[string, *bitset.Bitmap]
}

// New returns a Searcher over gi.
func New(gi *index.GitIndex) *Searcher {
	return &Searcher{
		gi:         gi,
		shortCache: lru.New[string, *bitset.Bitmap](shortTokenCacheSize),
	}
}

// candidateFiles resolves the FileId set that might contain token t, per
// spec §4.9 step 1. Tokens of 3 or more bytes go straight to
// word_ever_contained; shorter tokens go through the short-token cache,
// whose miss path is an exact global_fst membership check followed by a
// word_ever_contained lookup. No prefix or substring scan of global_fst
// is made, so a short token only finds files that hold it as a whole
// indexed token.
func (s *Searcher) candidateFiles(t tokenize.Token) *bitset.Bitmap {
	if len(t) >= 3 {
		if b, ok := s.gi.WordEverContained[t]; ok {
			return b
		}
		return bitset.New()
	}
	return s.shortCache.GetOrAdd(string(t), func() *bitset.Bitmap {
		if s.gi.GlobalFST == nil || !s.gi.GlobalFST.Contains(string(t)) {
			return bitset.New()
		}
		if b, ok := s.gi.WordEverContained[t]; ok {
			return b
		}
		return bitset.New()
	})
}

// SearchLiteral implements spec §4.9's literal-query path: split the
// query on word-class boundaries, intersect each word's candidate file
// set, then intersect each surviving file's per-word commit_inclusion
// bitmaps.
func (s *Searcher) SearchLiteral(ctx context.Context, queryText string, deadline time.Time) (*Result, error) {
	words := tokenize.WordBoundarySplit(queryText)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: query has no tokens", ErrInvalidQuery)
	}

	fileSets := make([]*bitset.Bitmap, len(words))
	for i, w := range words {
		fileSets[i] = s.candidateFiles(w)
	}
	candidates := bitset.Intersect(fileSets...)

	return s.resolveCommitBitmaps(ctx, candidates, words, deadline)
}

// resolveCommitBitmaps implements spec §4.9 steps 3-4 for a fixed set of
// concrete tokens: for every candidate file, intersect every token's
// commit_inclusion bitmap, and keep the file only if the result is
// non-empty. The inclusion bitmaps already span each token instance's
// full live range, so no separate per-file bitmap is intersected in.
func (s *Searcher) resolveCommitBitmaps(ctx context.Context, candidates *bitset.Bitmap, tokens []tokenize.Token, deadline time.Time) (*Result, error) {
	ids := candidates.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []RawPerFileResult
	for _, raw := range ids {
		if deadlineExceeded(deadline) || ctx.Err() != nil {
			trace.Search.Printf("search: deadline/cancellation hit after %d/%d candidates, returning truncated results", len(out), len(ids))
			return &Result{Files: out, Truncated: true}, nil
		}

		id := plumbing.FileID(raw)
		doc, ok := s.gi.Documents[id]
		if !ok {
			continue
		}

		bitmaps := make([]*bitset.Bitmap, 0, len(tokens)+1)
		for _, tok := range tokens {
			inc := doc.CommitInclusion(tok)
			if inc == nil {
				bitmaps = nil
				break
			}
			bitmaps = append(bitmaps, inc)
		}
		if bitmaps == nil {
			continue
		}

		commitBitmap := bitset.Intersect(bitmaps...)
		if commitBitmap.IsEmpty() {
			continue
		}
		out = append(out, RawPerFileResult{FileID: id, CommitBitmap: commitBitmap, QueryTokens: tokens})
	}

	return &Result{Files: out}, nil
}

func deadlineExceeded(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
