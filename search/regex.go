package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/grafana/regexp"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/internal/trace"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/query"
	"github.com/kev0960/crep/tokenize"
)

// SearchRegex implements spec §4.9's regex-query path: lower the pattern
// via query.Lower, then resolve candidates according to which of
// AnyMatch/All/Any it produced.
func (s *Searcher) SearchRegex(ctx context.Context, pattern string, deadline time.Time) (*Result, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty regex", ErrInvalidQuery)
	}

	cand, err := query.Lower(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}

	switch c := cand.(type) {
	case query.All:
		return s.resolveAll(ctx, c, deadline)

	case query.Any:
		var result *Result
		for _, branch := range c.Branches {
			if deadlineExceeded(deadline) || ctx.Err() != nil {
				trace.Search.Printf("search: deadline/cancellation hit mid Any-branch walk, returning truncated results")
				if result == nil {
					result = &Result{}
				}
				result.Truncated = true
				break
			}
			r, err := s.resolveAll(ctx, branch, deadline)
			if err != nil {
				return nil, err
			}
			result = mergeResults(result, r)
		}
		if result == nil {
			result = &Result{}
		}
		return result, nil

	case query.AnyMatch:
		return s.resolveAnyMatch(ctx, pattern, deadline)

	default:
		return nil, fmt.Errorf("search: unhandled regex candidates %T", cand)
	}
}

// resolveAll resolves an All(S) candidate per spec §4.9's regex-query
// rule: probe each trigram against word_ever_contained, intersect
// candidate FileId sets, then for every combination the trigrams
// enumerate (via PermutationIterator — degenerate here, since every
// trigram already names one concrete token) intersect commit bitmaps as
// in the literal case.
func (s *Searcher) resolveAll(ctx context.Context, all query.All, deadline time.Time) (*Result, error) {
	sets := make([][]tokenize.Token, len(all.Trigrams))
	for i, tg := range all.Trigrams {
		sets[i] = []tokenize.Token{tokenize.Token(tg)}
	}
	it := query.NewPermutationIterator(sets...)

	var result *Result
	var walkErr error
	it.Walk(
		func(combo []tokenize.Token) bool {
			candidates := bitset.Intersect(candidateSets(s, combo)...)
			r, err := s.resolveCommitBitmaps(ctx, candidates, combo, deadline)
			if err != nil {
				walkErr = err
				return false
			}
			result = mergeResults(result, r)
			return !deadlineExceeded(deadline) && ctx.Err() == nil
		},
		func(partial []tokenize.Token) bool {
			// Abandon this branch once its running candidate-file
			// intersection is already empty (spec §4.9/§5's
			// early-termination requirement for PermutationIterator).
			return bitset.Intersect(candidateSets(s, partial)...).IsEmpty()
		},
	)
	if walkErr != nil {
		return nil, walkErr
	}
	if result == nil {
		result = &Result{}
	}
	return result, nil
}

func candidateSets(s *Searcher, tokens []tokenize.Token) []*bitset.Bitmap {
	out := make([]*bitset.Bitmap, len(tokens))
	for i, t := range tokens {
		out[i] = s.candidateFiles(t)
	}
	return out
}

// resolveAnyMatch handles a regex that lowered to AnyMatch: no trigram
// constraint could be derived. If the regex still has a fixed literal
// prefix, that prefix narrows the candidate set; otherwise every known
// file is a candidate, with its full lifetime bitmap standing in for
// commit_bitmap (the true regex match is confirmed later, against actual
// blob content, by the snippet stage).
func (s *Searcher) resolveAnyMatch(ctx context.Context, pattern string, deadline time.Time) (*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	prefix, _ := re.LiteralPrefix()

	if prefix == "" {
		return s.resolveAllFiles(ctx, deadline)
	}

	if s.gi.Mode == tokenize.Trigram && len(prefix) >= 3 {
		if pc, err := query.Lower(regexp.QuoteMeta(prefix)); err == nil {
			if all, ok := pc.(query.All); ok {
				return s.resolveAll(ctx, all, deadline)
			}
		}
	}
	return s.resolvePrefixScan(ctx, prefix, deadline)
}

// resolvePrefixScan narrows candidates via a constrained global_fst
// prefix walk rather than a full trigram/word lookup, for literal
// prefixes too short (or too token-spanning, in word mode) to resolve
// through word_ever_contained directly.
func (s *Searcher) resolvePrefixScan(ctx context.Context, prefix string, deadline time.Time) (*Result, error) {
	var sets []*bitset.Bitmap
	if s.gi.GlobalFST != nil {
		if err := s.gi.GlobalFST.PrefixIterate(prefix, func(key string) bool {
			if b, ok := s.gi.WordEverContained[tokenize.Token(key)]; ok {
				sets = append(sets, b)
			}
			return true
		}); err != nil {
			return nil, fmt.Errorf("search: prefix scan: %w", err)
		}
	}
	candidates := bitset.Union(sets...)
	return s.resolveByLifetime(ctx, candidates, deadline)
}

// resolveAllFiles is the last-resort AnyMatch path: no literal prefix at
// all, so every known file is a candidate.
func (s *Searcher) resolveAllFiles(ctx context.Context, deadline time.Time) (*Result, error) {
	n := s.gi.Files.Len()
	all := bitset.New()
	for i := 0; i < n; i++ {
		all.Set(uint32(i))
	}
	return s.resolveByLifetime(ctx, all, deadline)
}

// resolveByLifetime emits one RawPerFileResult per candidate file using
// its full lifetime bitmap as commit_bitmap — the widest sound
// over-approximation available when no per-token commit intersection can
// be derived.
func (s *Searcher) resolveByLifetime(ctx context.Context, candidates *bitset.Bitmap, deadline time.Time) (*Result, error) {
	ids := candidates.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []RawPerFileResult
	for _, raw := range ids {
		if deadlineExceeded(deadline) || ctx.Err() != nil {
			trace.Search.Printf("search: deadline/cancellation hit after %d/%d lifetime candidates, returning truncated results", len(out), len(ids))
			return &Result{Files: out, Truncated: true}, nil
		}
		id := plumbing.FileID(raw)
		lifetime, ok := s.gi.FileLifetime[id]
		if !ok || lifetime.IsEmpty() {
			continue
		}
		out = append(out, RawPerFileResult{FileID: id, CommitBitmap: lifetime})
	}
	return &Result{Files: out}, nil
}
