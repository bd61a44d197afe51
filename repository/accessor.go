// Package repository defines the repository-accessor interface the
// indexer and snippet materialiser consume, per spec §6. Implementations
// are external collaborators; this module ships one (package gitrepo)
// backed by go-git, but the engine only ever depends on this interface.
package repository

import (
	"context"

	"github.com/kev0960/crep/plumbing"
)

// CommitMeta describes a single commit as needed by the indexer and by
// MatchDetail in the search API.
type CommitMeta struct {
	ID      plumbing.CommitID
	Parents []plumbing.CommitID
	Summary string
	When    int64 // Unix seconds; avoids pulling time.Time into the wire format.
}

// Hunk is a single contiguous change between two versions of a file, in
// the shape spec §4.4 names: old/new coordinates plus the literal text of
// any added lines (needed for re-tokenizing).
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	AddedLines         []string
}

// ChangeKind classifies a single file's change within a commit diff.
type ChangeKind int

const (
	Added ChangeKind = iota
	Deleted
	Modified
	Renamed
)

// FileChange is one file's change within a commit, as produced by
// Accessor.Diff.
type FileChange struct {
	Path    string
	OldPath string // set only for Renamed
	Kind    ChangeKind
	Hunks   []Hunk // populated only for Modified
}

// TreeEntry is a single file in a tree snapshot, as enumerated at the
// root commit (ordinal 0).
type TreeEntry struct {
	Path string
}

// Accessor is the capability set spec §6 describes: list commits
// reachable from a branch tip in topological order, diff two trees
// returning hunks, read blob bytes at (commit, path), and enumerate tree
// entries.
type Accessor interface {
	// Commits returns the commits reachable from tip in topological
	// order (parents before children), resolved first-parent-only for
	// merge commits per spec §4.6/§9.
	Commits(ctx context.Context, tip string) ([]CommitMeta, error)

	// Diff returns the file-level changes between a commit and its
	// chosen parent. For the root commit (no parents), every file in
	// the tree is reported as Added.
	Diff(ctx context.Context, commit plumbing.CommitID) ([]FileChange, error)

	// ReadBlob returns the bytes of path as it existed at commit.
	ReadBlob(ctx context.Context, commit plumbing.CommitID, path string) ([]byte, error)

	// ListTree enumerates every file in the tree at commit.
	ListTree(ctx context.Context, commit plumbing.CommitID) ([]TreeEntry, error)
}
