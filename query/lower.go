package query

import (
	"fmt"
	"regexp/syntax"
)

// maxCharClassExpansion is the T=16 cap from spec §4.8: a character class
// wider than this degrades to a gap (no trigram constraint) rather than
// being expanded into per-byte alternation branches.
const maxCharClassExpansion = 16

// Lower parses pattern and lowers it to Candidates per spec §4.8. Lowering
// is sound: every string Lower would reject as impossible actually cannot
// match pattern, but the converse need not hold (AnyMatch is always a
// safe, if useless, answer).
func Lower(pattern string) (Candidates, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("query: parse regex: %w", err)
	}
	return classify(re.Simplify()), nil
}

func classify(re *syntax.Regexp) Candidates {
	switch re.Op {
	case syntax.OpCapture:
		return classify(re.Sub[0])

	case syntax.OpConcat:
		return classifyConcat(flattenConcat(re))

	case syntax.OpAlternate:
		return classifyAlternate(re.Sub)

	case syntax.OpPlus:
		return classify(re.Sub[0])

	case syntax.OpRepeat:
		if re.Min >= 1 {
			return classify(re.Sub[0])
		}
		return AnyMatch{}

	case syntax.OpLiteral:
		if b, ok := asciiBytes(re.Rune); ok {
			return newAll(slidingTrigrams(b))
		}
		return AnyMatch{}

	default:
		// OpStar, OpQuest, OpCharClass (standalone, always < 3 bytes),
		// OpAnyChar(NotNL), anchors, word boundaries, OpEmptyMatch,
		// OpNoMatch: none of these guarantee a 3-byte substring on their
		// own.
		return AnyMatch{}
	}
}

// flattenConcat returns re's children with any nested OpConcat children
// recursively flattened, so a run of fixed bytes isn't accidentally split
// at a capture-group boundary.
func flattenConcat(re *syntax.Regexp) []*syntax.Regexp {
	var out []*syntax.Regexp
	var walk func(*syntax.Regexp)
	walk = func(r *syntax.Regexp) {
		if r.Op == syntax.OpConcat {
			for _, s := range r.Sub {
				walk(s)
			}
			return
		}
		if r.Op == syntax.OpCapture {
			walk(r.Sub[0])
			return
		}
		out = append(out, r)
	}
	walk(re)
	return out
}

// classifyConcat builds the set of trigrams guaranteed to occur in any
// match of children, by segmenting the concatenation into maximal runs of
// known, fixed bytes separated by gaps (unanchored repetition, wide
// character classes, wildcards...) and sliding 3-byte windows
// across each run (spec §4.8's concatenation rule). Anchors and
// zero-width assertions are transparent: they neither contribute bytes
// nor break a run, matching scenario 5 ("^#include" still yields windows
// over "#include").
func classifyConcat(children []*syntax.Regexp) Candidates {
	if branches, ok := classifySingleAmbiguousClass(children); ok {
		return branches
	}

	var trigrams []string
	var run []byte
	flush := func() {
		trigrams = append(trigrams, slidingTrigrams(run)...)
		run = nil
	}
	for _, c := range children {
		if isZeroWidth(c) {
			continue
		}
		if b, ok := knownRun(c); ok {
			run = append(run, b...)
			continue
		}
		flush()
	}
	flush()

	return newAll(trigrams)
}

// classifySingleAmbiguousClass handles the common "[a-q]oo" shape: a
// concatenation containing exactly one character class too wide to be a
// single known byte but narrow enough (<= T) to expand, with the
// remaining children reducible to known, fixed byte runs on each side.
// Each expansion becomes its own All branch, combined with Any, which is
// exactly the "character classes expand to OR of single-byte branches"
// rule. Concatenations that don't fit this shape fall back to
// classifyConcat's gap-based treatment, which remains sound.
func classifySingleAmbiguousClass(children []*syntax.Regexp) (Candidates, bool) {
	idx := -1
	var alts []byte
	for i, c := range children {
		if c.Op != syntax.OpCharClass {
			continue
		}
		if _, ok := knownRun(c); ok {
			continue // single-rune class, handled as a known byte
		}
		a, ok := expandCharClass(c)
		if !ok || idx != -1 {
			// Either too wide to expand, or a second ambiguous class:
			// bail out to the simpler gap-based algorithm.
			return nil, false
		}
		idx, alts = i, a
	}
	if idx == -1 {
		return nil, false
	}

	left, ok := knownPrefix(children[:idx])
	if !ok {
		return nil, false
	}
	right, ok := knownPrefix(children[idx+1:])
	if !ok {
		return nil, false
	}

	branches := make([]All, 0, len(alts))
	for _, v := range alts {
		full := make([]byte, 0, len(left)+1+len(right))
		full = append(full, left...)
		full = append(full, v)
		full = append(full, right...)
		windows := slidingTrigrams(full)
		if len(windows) == 0 {
			// This branch can't pin down any trigram; the whole
			// alternation degrades to AnyMatch to stay sound.
			return AnyMatch{}, true
		}
		branches = append(branches, All{Trigrams: dedupSorted(windows)})
	}
	return newAny(branches), true
}

// knownPrefix concatenates children's known bytes, skipping zero-width
// assertions, and reports ok=false the moment a non-fixed child appears.
func knownPrefix(children []*syntax.Regexp) ([]byte, bool) {
	var out []byte
	for _, c := range children {
		if isZeroWidth(c) {
			continue
		}
		b, ok := knownRun(c)
		if !ok {
			return nil, false
		}
		out = append(out, b...)
	}
	return out, true
}

// knownRun reports the exact byte sequence c is guaranteed to render to,
// when that sequence is single-valued and entirely ASCII.
func knownRun(re *syntax.Regexp) ([]byte, bool) {
	switch re.Op {
	case syntax.OpLiteral:
		return asciiBytes(re.Rune)
	case syntax.OpCharClass:
		if len(re.Rune) == 2 && re.Rune[0] == re.Rune[1] && re.Rune[0] >= 0 && re.Rune[0] < 128 {
			return []byte{byte(re.Rune[0])}, true
		}
		return nil, false
	case syntax.OpCapture:
		return knownRun(re.Sub[0])
	case syntax.OpConcat:
		var out []byte
		for _, s := range re.Sub {
			if isZeroWidth(s) {
				continue
			}
			b, ok := knownRun(s)
			if !ok {
				return nil, false
			}
			out = append(out, b...)
		}
		return out, true
	default:
		return nil, false
	}
}

func isZeroWidth(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary, syntax.OpEmptyMatch:
		return true
	default:
		return false
	}
}

// expandCharClass returns the ASCII single-byte alternatives re covers,
// bounded by maxCharClassExpansion.
func expandCharClass(re *syntax.Regexp) ([]byte, bool) {
	if re.Op != syntax.OpCharClass {
		return nil, false
	}
	var out []byte
	for i := 0; i+1 < len(re.Rune); i += 2 {
		lo, hi := re.Rune[i], re.Rune[i+1]
		if lo < 0 || hi >= 128 {
			return nil, false
		}
		for r := lo; r <= hi; r++ {
			if len(out) >= maxCharClassExpansion {
				return nil, false
			}
			out = append(out, byte(r))
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func classifyAlternate(subs []*syntax.Regexp) Candidates {
	var branches []All
	for _, s := range subs {
		c := classify(s)
		switch v := c.(type) {
		case AnyMatch:
			return AnyMatch{}
		case All:
			branches = append(branches, v)
		case Any:
			branches = append(branches, v.Branches...)
		}
	}
	return newAny(branches)
}

func asciiBytes(runes []rune) ([]byte, bool) {
	out := make([]byte, 0, len(runes))
	for _, r := range runes {
		if r < 0 || r > 127 {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}
