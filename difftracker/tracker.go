// Package difftracker maps a file's currently-live line numbers to the
// commit that introduced them, and applies hunk-shaped diffs between
// successive snapshots, per spec §4.4.
package difftracker

import (
	"sort"

	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
)

// origin records where a live line came from: the commit ordinal that
// introduced it, and that line's number at the time it was introduced
// (the indexer uses the latter as the line of the document.WordKey it
// closes when the line is removed).
type origin struct {
	commit plumbing.CommitOrdinal
	line   int
}

// Tracker is the per-file live-line-number -> origin-commit map.
type Tracker struct {
	live map[int]origin // new (current) line number -> origin
}

// New returns an empty tracker (no lines tracked yet).
func New() *Tracker {
	return &Tracker{live: make(map[int]origin)}
}

// NewFullAdd returns a tracker for a file added in full at commit,
// covering numLines lines, all originating at commit.
func NewFullAdd(commit plumbing.CommitOrdinal, numLines int) *Tracker {
	t := New()
	for i := 1; i <= numLines; i++ {
		t.live[i] = origin{commit: commit, line: i}
	}
	return t
}

// RemovedInstance is a single removed line, tagged with the commit
// ordinal that originally introduced it (spec §4.4 step 1: "resolve
// their origin commits via the state").
type RemovedInstance struct {
	Line         int // the line number in the OLD (pre-diff) coordinate space
	OriginCommit plumbing.CommitOrdinal
	OriginLine   int
}

// Apply applies every hunk of a single commit's diff against this
// tracker's current (old) coordinate space, in the order given. It
// returns every line removed by any hunk, then leaves the tracker's key
// set equal to the new file's line-number set (spec §4.4's invariant).
func Apply(t *Tracker, newCommit plumbing.CommitOrdinal, hunks []repository.Hunk) []RemovedInstance {
	var removed []RemovedInstance
	next := make(map[int]origin, len(t.live))

	// Lines not touched by any hunk must still shift by the cumulative
	// delta of every hunk that precedes them. We process hunks in
	// ascending old-line order (callers are expected to supply them that
	// way, matching a unified diff) and carry the running shift forward.
	sortedHunks := append([]repository.Hunk(nil), hunks...)
	sort.Slice(sortedHunks, func(i, j int) bool { return sortedHunks[i].OldStart < sortedHunks[j].OldStart })

	shift := 0
	cursor := 1 // old-line cursor, 1-based
	for _, h := range sortedHunks {
		// Copy-through the untouched region before this hunk.
		for oldLine := cursor; oldLine < h.OldStart; oldLine++ {
			if o, ok := t.live[oldLine]; ok {
				next[oldLine+shift] = o
			}
		}

		// Deleted lines in this hunk: resolve their origin and record
		// them as removed.
		for i := 0; i < h.OldCount; i++ {
			oldLine := h.OldStart + i
			if o, ok := t.live[oldLine]; ok {
				removed = append(removed, RemovedInstance{Line: oldLine, OriginCommit: o.commit, OriginLine: o.line})
			}
		}

		// Added lines in this hunk: they originate at newCommit, at
		// their new-coordinate line numbers.
		for i := 0; i < h.NewCount; i++ {
			newLine := h.NewStart + i
			next[newLine] = origin{commit: newCommit, line: newLine}
		}

		cursor = h.OldStart + h.OldCount
		shift += h.NewCount - h.OldCount
	}

	// Copy-through any remaining untouched tail.
	maxOld := 0
	for oldLine := range t.live {
		if oldLine > maxOld {
			maxOld = oldLine
		}
	}
	for oldLine := cursor; oldLine <= maxOld; oldLine++ {
		if o, ok := t.live[oldLine]; ok {
			next[oldLine+shift] = o
		}
	}

	t.live = next
	return removed
}

// RemoveAll marks every currently-live line as removed at newCommit,
// equivalent to the file being deleted (spec §4.5 remove_document).
func RemoveAll(t *Tracker, newCommit plumbing.CommitOrdinal) []RemovedInstance {
	var removed []RemovedInstance
	for line, o := range t.live {
		removed = append(removed, RemovedInstance{Line: line, OriginCommit: o.commit, OriginLine: o.line})
	}
	t.live = make(map[int]origin)
	return removed
}

// LiveLines returns the current set of live line numbers, for tests that
// assert the tracker's invariant (its key set equals the file's current
// line-number set).
func (t *Tracker) LiveLines() []int {
	out := make([]int, 0, len(t.live))
	for line := range t.live {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}
