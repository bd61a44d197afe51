// Package snippet materialises match context for the search API: given a
// file at a specific commit and the tokens (or regex) that matched,
// fetch the blob, re-tokenize it, and return the matching lines with
// byte-column highlights (spec §4.10).
package snippet

import (
	"context"
	"fmt"
	"sort"

	"github.com/grafana/regexp"

	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/kev0960/crep/tokenize"
)

// Highlight is a single matched span within a LineMatch's Content, given
// as a byte-column offset, not a character offset (spec §4.10).
type Highlight struct {
	Term   string
	Column int
}

// LineMatch is one line of matched content within a file.
type LineMatch struct {
	LineNumber int
	Content    string
	Highlights []Highlight
}

// Lines materialises every line of the blob at (commit, path) that
// contains one of queryTokens, per spec §4.10's literal/All-regex path:
// run the tokenizer in presentation mode, keep only instances whose
// token is in queryTokens, and group them back into lines.
func Lines(ctx context.Context, accessor repository.Accessor, commit plumbing.CommitID, path string, mode tokenize.Mode, queryTokens []tokenize.Token) ([]LineMatch, error) {
	blob, err := accessor.ReadBlob(ctx, commit, path)
	if err != nil {
		return nil, fmt.Errorf("snippet: read blob %s@%s: %w", path, commit, err)
	}

	wanted := make(map[tokenize.Token]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		wanted[t] = struct{}{}
	}

	byLine := make(map[int][]Highlight)
	for _, inst := range tokenize.Presentation(blob, mode) {
		if _, ok := wanted[inst.Token]; !ok {
			continue
		}
		byLine[inst.Line] = append(byLine[inst.Line], Highlight{Term: string(inst.Token), Column: inst.Column})
	}

	return buildLineMatches(blob, byLine), nil
}

// RegexLines materialises every line of the blob at (commit, path) that
// matches pattern directly, for the regex AnyMatch path where no
// trigram/word token set exists to intersect against (spec §4.10's
// counterpart for queries that couldn't be lowered to a candidate set).
func RegexLines(ctx context.Context, accessor repository.Accessor, commit plumbing.CommitID, path string, pattern string) ([]LineMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("snippet: compile regex %q: %w", pattern, err)
	}

	blob, err := accessor.ReadBlob(ctx, commit, path)
	if err != nil {
		return nil, fmt.Errorf("snippet: read blob %s@%s: %w", path, commit, err)
	}

	byLine := make(map[int][]Highlight)
	starts := tokenize.Lines(blob)
	for i := range starts {
		lineNo := i + 1
		content := tokenize.LineContent(blob, lineNo)
		for _, span := range re.FindAllStringIndex(content, -1) {
			byLine[lineNo] = append(byLine[lineNo], Highlight{Term: content[span[0]:span[1]], Column: span[0]})
		}
	}

	return buildLineMatches(blob, byLine), nil
}

func buildLineMatches(blob []byte, byLine map[int][]Highlight) []LineMatch {
	lineNos := make([]int, 0, len(byLine))
	for ln := range byLine {
		lineNos = append(lineNos, ln)
	}
	sort.Ints(lineNos)

	out := make([]LineMatch, 0, len(lineNos))
	for _, ln := range lineNos {
		highlights := byLine[ln]
		sort.Slice(highlights, func(i, j int) bool { return highlights[i].Column < highlights[j].Column })
		out = append(out, LineMatch{
			LineNumber: ln,
			Content:    tokenize.LineContent(blob, ln),
			Highlights: highlights,
		})
	}
	return out
}
