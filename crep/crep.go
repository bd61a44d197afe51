// Package crep is the root Search API facade (spec §1/§7): it wires the
// history indexer, the searcher, and the snippet materialiser into the
// single entry point external callers (the CLI, the HTTP server — both
// out of scope) use.
package crep

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/kev0960/crep/index"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/kev0960/crep/search"
	"github.com/kev0960/crep/snippet"
	"github.com/kev0960/crep/tokenize"
)

// QueryMode selects how Search interprets its query argument.
type QueryMode int

const (
	// Plain treats the query as a literal string, split on word-class
	// boundaries exactly as the tokeniser splits indexed content.
	Plain QueryMode = iota
	// Regex treats the query as a regular expression, lowered to a
	// trigram/word candidate set per spec §4.8.
	Regex
)

// NoDeadline passed as Search's deadline means the query runs to
// completion. A deadline of exactly 0 is not the same thing: it means
// "already expired", per spec §8 scenario 6 ("deadline of 0ms yields an
// empty result set with truncated=true and no errors").
const NoDeadline time.Duration = -1

// Highlight is a single matched span within a LineMatch's Content, given
// as a byte-column offset.
type Highlight = snippet.Highlight

// LineMatch is one matched line of a file's content at a specific commit.
type LineMatch = snippet.LineMatch

// MatchDetail describes one commit at which a query matched a file (spec
// §1's "first and last commit in which the query matched").
type MatchDetail struct {
	CommitOrdinal plumbing.CommitOrdinal
	CommitID      plumbing.CommitID
	CommitSummary string
	CommitDate    int64
	Lines         []LineMatch
}

// Hit is one matching file, reporting the first and (if distinct) last
// commit at which the query matched.
type Hit struct {
	FilePath string
	First    MatchDetail
	Last     *MatchDetail
}

// Index is the immutable, queryable result of indexing a repository's
// history: a built or reloaded GitIndex paired with the repository
// accessor the snippet stage needs to fetch blobs.
type Index struct {
	gi       *index.GitIndex
	accessor repository.Accessor
	searcher *search.Searcher
}

// Build runs the history indexer (spec §4.6) against accessor starting at
// tip and returns the resulting Index together with the non-fatal
// per-file condition counters spec §7 says to log rather than fail on.
func Build(ctx context.Context, accessor repository.Accessor, tip string, mode tokenize.Mode, utf8Permissive bool) (*Index, *index.IndexStats, error) {
	gi, stats, err := index.Build(ctx, accessor, tip, mode, utf8Permissive)
	if err != nil {
		return nil, nil, err
	}
	return &Index{gi: gi, accessor: accessor, searcher: search.New(gi)}, stats, nil
}

// Load restores a previously Saved index, pairing it with accessor for
// subsequent snippet materialisation.
func Load(r io.Reader, accessor repository.Accessor) (*Index, error) {
	gi, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	return &Index{gi: gi, accessor: accessor, searcher: search.New(gi)}, nil
}

// Save persists idx's index to w in the format Load reads back.
func Save(w io.Writer, idx *Index) error {
	if idx == nil {
		return fmt.Errorf("%w: Save called on a nil Index", ErrIndexUnavailable)
	}
	return index.Save(w, idx.gi)
}

// Search answers a query against idx, per spec §1/§7's search API:
// search(query, mode, limit?, deadline?) -> []Hit. A zero limit means
// unbounded; pass NoDeadline to run to completion, or any duration >= 0
// to bound the search (0 means "already expired", per spec §8 scenario
// 6). The returned bool reports whether the deadline cut the scan short
// before every candidate file was examined — per spec §5/§7, a cancelled
// query still returns whatever hits were finalised, marked as
// truncated, rather than an error.
func (idx *Index) Search(ctx context.Context, query string, mode QueryMode, limit int, deadline time.Duration) ([]Hit, bool, error) {
	if idx == nil {
		return nil, false, fmt.Errorf("%w", ErrIndexUnavailable)
	}

	var absDeadline time.Time
	if deadline != NoDeadline {
		absDeadline = time.Now().Add(deadline)
	}

	var result *search.Result
	var err error
	switch mode {
	case Plain:
		result, err = idx.searcher.SearchLiteral(ctx, query, absDeadline)
	case Regex:
		result, err = idx.searcher.SearchRegex(ctx, query, absDeadline)
	default:
		return nil, false, fmt.Errorf("%w: unknown query mode %d", ErrInvalidQuery, mode)
	}
	if err != nil {
		return nil, false, err
	}

	hits := make([]Hit, 0, len(result.Files))
	for _, raw := range result.Files {
		hit, err := idx.materialize(ctx, raw, query, mode)
		if err != nil {
			return nil, false, err
		}
		hits = append(hits, hit)
	}

	// Order by first-seen ascending, per spec §8 scenario 4
	// ("ordered by first-seen ascending").
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].First.CommitOrdinal != hits[j].First.CommitOrdinal {
			return hits[i].First.CommitOrdinal < hits[j].First.CommitOrdinal
		}
		return hits[i].FilePath < hits[j].FilePath
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, result.Truncated, nil
}

// materialize turns one RawPerFileResult into a Hit: resolves the
// first/last commit ordinals from commit_bitmap (spec §4.9's "First/last
// commit extraction"), maps them back to commit metadata, and fetches
// highlighted line snippets for each (spec §4.10).
func (idx *Index) materialize(ctx context.Context, raw search.RawPerFileResult, query string, mode QueryMode) (Hit, error) {
	path, ok := idx.gi.Files.Path(raw.FileID)
	if !ok {
		return Hit{}, fmt.Errorf("crep: file id %d has no registered path", raw.FileID)
	}

	firstOrd := plumbing.CommitOrdinal(raw.CommitBitmap.Min())
	lastOrd := plumbing.CommitOrdinal(raw.CommitBitmap.Max())

	first, err := idx.matchDetail(ctx, firstOrd, path, raw, query, mode)
	if err != nil {
		return Hit{}, err
	}

	hit := Hit{FilePath: path, First: first}
	if lastOrd != firstOrd {
		last, err := idx.matchDetail(ctx, lastOrd, path, raw, query, mode)
		if err != nil {
			return Hit{}, err
		}
		hit.Last = &last
	}
	return hit, nil
}

func (idx *Index) matchDetail(ctx context.Context, ord plumbing.CommitOrdinal, path string, raw search.RawPerFileResult, query string, mode QueryMode) (MatchDetail, error) {
	rec, err := idx.commitRecord(ord)
	if err != nil {
		return MatchDetail{}, err
	}

	lines, err := idx.snippetLines(ctx, rec.ID, path, raw, query, mode)
	if err != nil {
		return MatchDetail{}, fmt.Errorf("crep: snippet for %s@%s: %w", path, rec.ID, err)
	}

	return MatchDetail{
		CommitOrdinal: ord,
		CommitID:      rec.ID,
		CommitSummary: rec.Summary,
		CommitDate:    rec.When,
		Lines:         lines,
	}, nil
}

func (idx *Index) commitRecord(ord plumbing.CommitOrdinal) (index.CommitRecord, error) {
	if int(ord) < 0 || int(ord) >= len(idx.gi.Commits) {
		return index.CommitRecord{}, fmt.Errorf("crep: commit ordinal %d out of range", ord)
	}
	return idx.gi.Commits[ord], nil
}

// snippetLines dispatches to snippet.Lines when raw carries a concrete
// query-token set (the literal and trigram-lowered regex paths), or to
// snippet.RegexLines when it doesn't: the AnyMatch fallback narrows
// candidates without naming any specific token, so the pattern itself
// must be matched directly against blob content (spec §4.9's AnyMatch
// note, §4.10).
func (idx *Index) snippetLines(ctx context.Context, commit plumbing.CommitID, path string, raw search.RawPerFileResult, query string, mode QueryMode) ([]snippet.LineMatch, error) {
	if len(raw.QueryTokens) == 0 && mode == Regex {
		return snippet.RegexLines(ctx, idx.accessor, commit, path, query)
	}
	return snippet.Lines(ctx, idx.accessor, commit, path, idx.gi.Mode, raw.QueryTokens)
}
