// Package query implements regex -> trigram lowering (spec §4.8) and the
// PermutationIterator used to enumerate concrete token combinations that
// cover a multi-trigram constraint (spec §4.9).
package query

import "sort"

// Candidates is the output of lowering a regex: one of AnyMatch, All or
// Any, per spec §4.8.
type Candidates interface {
	isCandidates()
}

// AnyMatch means no trigram constraint could be derived; the searcher
// must degrade to an FST scan.
type AnyMatch struct{}

func (AnyMatch) isCandidates() {}

// All means every one of Trigrams must occur somewhere in a match
// (logical AND). Trigrams is sorted and duplicate-free.
type All struct {
	Trigrams []string
}

func (All) isCandidates() {}

// Any means at least one of Branches must hold (logical OR over ANDs).
type Any struct {
	Branches []All
}

func (Any) isCandidates() {}

func newAll(trigrams []string) Candidates {
	if len(trigrams) == 0 {
		return AnyMatch{}
	}
	return All{Trigrams: dedupSorted(trigrams)}
}

func newAny(branches []All) Candidates {
	switch len(branches) {
	case 0:
		return AnyMatch{}
	case 1:
		return branches[0]
	default:
		return Any{Branches: branches}
	}
}

func dedupSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	var last string
	first := true
	for _, s := range in {
		if !first && s == last {
			continue
		}
		out = append(out, s)
		last = s
		first = false
	}
	return out
}

// slidingTrigrams returns every contiguous 3-byte window of b.
func slidingTrigrams(b []byte) []string {
	if len(b) < 3 {
		return nil
	}
	out := make([]string, 0, len(b)-2)
	for i := 0; i+3 <= len(b); i++ {
		out = append(out, string(b[i:i+3]))
	}
	return out
}
