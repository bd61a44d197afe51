package query

// PermutationIterator enumerates every combination (one element per input
// set) of a finite family of sets in lexicographic order, per spec §4.9:
// when an All's trigrams resolve to multiple candidate concrete token
// occurrences each, the searcher must try every combination before
// concluding none of them co-occur in a file's commit range.
type PermutationIterator[T any] struct {
	sets [][]T
}

// NewPermutationIterator builds an iterator over sets. An empty set at
// any position means the family has no valid combination at all.
func NewPermutationIterator[T any](sets ...[]T) *PermutationIterator[T] {
	return &PermutationIterator[T]{sets: sets}
}

// Walk performs a depth-first enumeration of every combination.
//
// After extending the partial combination with each candidate, prune is
// consulted (if non-nil) with the partial combination built so far; if it
// returns true, that branch is abandoned without descending further —
// the intended use is a caller tracking a running bitmap intersection
// that has already gone empty, per spec §4.9's early-termination
// requirement.
//
// visit is called once per complete combination (len(combo) ==
// len(sets)). The slice passed to visit is only valid for the duration of
// the call. If visit returns false, the entire walk stops immediately.
func (p *PermutationIterator[T]) Walk(visit func(combo []T) bool, prune func(partial []T) bool) {
	if len(p.sets) == 0 {
		return
	}
	for _, s := range p.sets {
		if len(s) == 0 {
			return
		}
	}

	combo := make([]T, 0, len(p.sets))
	stop := false

	var rec func(depth int)
	rec = func(depth int) {
		if stop {
			return
		}
		if depth == len(p.sets) {
			if !visit(combo) {
				stop = true
			}
			return
		}
		for _, v := range p.sets[depth] {
			combo = append(combo, v)
			if prune == nil || !prune(combo) {
				rec(depth + 1)
			}
			combo = combo[:len(combo)-1]
			if stop {
				return
			}
		}
	}
	rec(0)
}

// Combinations materializes every combination. Intended for tests and
// small families; production callers wanting early termination should use
// Walk directly.
func (p *PermutationIterator[T]) Combinations() [][]T {
	var out [][]T
	p.Walk(func(combo []T) bool {
		cp := make([]T, len(combo))
		copy(cp, combo)
		out = append(out, cp)
		return true
	}, nil)
	return out
}
