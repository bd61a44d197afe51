// Package index implements the history indexer (spec §4.6) and the
// persisted GitIndex (§4.7/§6): the immutable root structure a Searcher
// queries against.
package index

import (
	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/document"
	"github.com/kev0960/crep/fst"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

// CommitRecord is a commit's metadata resolved to ordinal form, as stored
// in a GitIndex's commit table.
type CommitRecord struct {
	ID            plumbing.CommitID
	HasParent     bool
	ParentOrdinal plumbing.CommitOrdinal
	Summary       string
	When          int64
}

// IndexStats counts the non-fatal per-file conditions spec §7 says are
// "recovered locally and logged" rather than surfaced as errors.
type IndexStats struct {
	BinaryOrNonText int
	DiffMalformed   int
}

// GitIndex is the immutable, queryable result of running the history
// indexer (spec §4.6) to completion. Once built, a GitIndex is read-only:
// many Searchers may query it concurrently (spec §5).
type GitIndex struct {
	Mode              tokenize.Mode
	UTF8Permissive    bool
	Ordinals          *plumbing.OrdinalTable
	Commits           []CommitRecord
	Files             *FileTable
	Documents         map[plumbing.FileID]*document.Document
	FileLifetime      map[plumbing.FileID]*bitset.Bitmap
	WordEverContained map[tokenize.Token]*bitset.Bitmap
	GlobalFST         *fst.Set
}

func newGitIndex(mode tokenize.Mode, utf8Permissive bool) *GitIndex {
	return &GitIndex{
		Mode:              mode,
		UTF8Permissive:    utf8Permissive,
		Ordinals:          plumbing.NewOrdinalTable(),
		Files:             NewFileTable(),
		Documents:         make(map[plumbing.FileID]*document.Document),
		FileLifetime:      make(map[plumbing.FileID]*bitset.Bitmap),
		WordEverContained: make(map[tokenize.Token]*bitset.Bitmap),
	}
}

func (gi *GitIndex) documentFor(id plumbing.FileID) *document.Document {
	d, ok := gi.Documents[id]
	if !ok {
		d = document.New()
		gi.Documents[id] = d
	}
	return d
}

func (gi *GitIndex) lifetimeFor(id plumbing.FileID) *bitset.Bitmap {
	b, ok := gi.FileLifetime[id]
	if !ok {
		b = bitset.New()
		gi.FileLifetime[id] = b
	}
	return b
}

func (gi *GitIndex) wordEverContainedFor(t tokenize.Token) *bitset.Bitmap {
	b, ok := gi.WordEverContained[t]
	if !ok {
		b = bitset.New()
		gi.WordEverContained[t] = b
	}
	return b
}
