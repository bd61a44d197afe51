// Package gitrepo implements repository.Accessor against a real
// *git.Repository, using go-git/v5 directly: commit walking via
// Commit.Parent(0), tree diffing via Tree.Diff, and hunk derivation from
// FilePatch.Chunks() (spec §6).
package gitrepo

import (
	"context"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"

	gitplumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Accessor adapts a go-git repository to repository.Accessor.
type Accessor struct {
	repo *gogit.Repository
}

// New wraps an already-open go-git repository.
func New(repo *gogit.Repository) *Accessor {
	return &Accessor{repo: repo}
}

// Open opens the git repository rooted at path (a working tree or a bare
// repository).
func Open(path string) (*Accessor, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: open %s: %w", path, err)
	}
	return New(repo), nil
}

func toCommitID(h gitplumbing.Hash) plumbing.CommitID {
	return plumbing.NewCommitID(h[:])
}

func toGitHash(id plumbing.CommitID) gitplumbing.Hash {
	var h gitplumbing.Hash
	copy(h[:], id.Bytes())
	return h
}

func (a *Accessor) commitObject(id plumbing.CommitID) (*gitobject.Commit, error) {
	return a.repo.CommitObject(toGitHash(id))
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

// Commits resolves tip and walks its first-parent chain back to the root
// commit, returning commits oldest-first — a topological order, since a
// first-parent chain is linear (spec §4.6/§9's first-parent resolution).
func (a *Accessor) Commits(ctx context.Context, tip string) ([]repository.CommitMeta, error) {
	hash, err := a.repo.ResolveRevision(gitplumbing.Revision(tip))
	if err != nil {
		return nil, fmt.Errorf("gitrepo: resolve revision %q: %w", tip, err)
	}

	var chain []*gitobject.Commit
	commit, err := a.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: load commit %s: %w", hash, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chain = append(chain, commit)
		if commit.NumParents() == 0 {
			break
		}
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("gitrepo: first parent of %s: %w", commit.Hash, err)
		}
		commit = parent
	}

	metas := make([]repository.CommitMeta, len(chain))
	for i, c := range chain {
		j := len(chain) - 1 - i // chain is newest-first; reverse to oldest-first.
		parents := make([]plumbing.CommitID, len(c.ParentHashes))
		for k, ph := range c.ParentHashes {
			parents[k] = toCommitID(ph)
		}
		metas[j] = repository.CommitMeta{
			ID:      toCommitID(c.Hash),
			Parents: parents,
			Summary: firstLine(c.Message),
			When:    c.Author.When.Unix(),
		}
	}
	return metas, nil
}

// Diff diffs commit against its first parent. For the root commit (no
// parents), every file in its tree is reported as Added.
func (a *Accessor) Diff(ctx context.Context, commit plumbing.CommitID) ([]repository.FileChange, error) {
	c, err := a.commitObject(commit)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: load commit %s: %w", commit, err)
	}
	if c.NumParents() == 0 {
		tree, err := c.Tree()
		if err != nil {
			return nil, fmt.Errorf("gitrepo: tree of %s: %w", commit, err)
		}
		var out []repository.FileChange
		iter := tree.Files()
		defer iter.Close()
		err = iter.ForEach(func(f *gitobject.File) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out = append(out, repository.FileChange{Path: f.Name, Kind: repository.Added})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("gitrepo: list root tree %s: %w", commit, err)
		}
		return out, nil
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: first parent of %s: %w", commit, err)
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: tree of %s: %w", commit, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: tree of %s: %w", parent.Hash, err)
	}

	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: diff %s..%s: %w", parent.Hash, commit, err)
	}

	out := make([]repository.FileChange, 0, len(changes))
	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("gitrepo: change action: %w", err)
		}

		switch action {
		case merkletrie.Insert:
			out = append(out, repository.FileChange{Path: ch.To.Name, Kind: repository.Added})

		case merkletrie.Delete:
			out = append(out, repository.FileChange{Path: ch.From.Name, Kind: repository.Deleted})

		case merkletrie.Modify:
			hunks, err := changeHunks(ch)
			if err != nil {
				return nil, fmt.Errorf("gitrepo: hunks for %s: %w", ch.To.Name, err)
			}
			out = append(out, repository.FileChange{Path: ch.To.Name, Kind: repository.Modified, Hunks: hunks})

		default:
			return nil, fmt.Errorf("gitrepo: unrecognized change action %v", action)
		}
	}
	return out, nil
}

// changeHunks derives repository.Hunk values from a modified file's
// patch, by walking its diff chunks in order and converting each
// contiguous add/delete run bracketed by equal runs into one hunk (spec
// §4.4).
func changeHunks(ch *gitobject.Change) ([]repository.Hunk, error) {
	patch, err := ch.Patch()
	if err != nil {
		return nil, err
	}

	var hunks []repository.Hunk
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		hunks = append(hunks, chunksToHunks(fp.Chunks())...)
	}
	return hunks, nil
}

func chunksToHunks(chunks []gitdiff.Chunk) []repository.Hunk {
	var hunks []repository.Hunk
	oldLine, newLine := 1, 1

	i := 0
	for i < len(chunks) {
		if chunks[i].Type() == gitdiff.Equal {
			n := countLines(chunks[i].Content())
			oldLine += n
			newLine += n
			i++
			continue
		}

		h := repository.Hunk{OldStart: oldLine, NewStart: newLine}
		for i < len(chunks) && chunks[i].Type() != gitdiff.Equal {
			switch chunks[i].Type() {
			case gitdiff.Delete:
				n := countLines(chunks[i].Content())
				h.OldCount += n
				oldLine += n
			case gitdiff.Add:
				lines := splitLines(chunks[i].Content())
				h.AddedLines = append(h.AddedLines, lines...)
				h.NewCount += len(lines)
				newLine += len(lines)
			}
			i++
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func countLines(content string) int {
	return len(splitLines(content))
}

// splitLines splits chunk content on '\n', dropping the final empty
// element a trailing newline would otherwise produce.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ReadBlob returns path's content as it existed at commit.
func (a *Accessor) ReadBlob(ctx context.Context, commit plumbing.CommitID, path string) ([]byte, error) {
	c, err := a.commitObject(commit)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: load commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: tree of %s: %w", commit, err)
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: read %s@%s: %w", path, commit, err)
	}
	r, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: open %s@%s: %w", path, commit, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: read %s@%s: %w", path, commit, err)
	}
	return data, nil
}

// ListTree enumerates every file at commit.
func (a *Accessor) ListTree(ctx context.Context, commit plumbing.CommitID) ([]repository.TreeEntry, error) {
	c, err := a.commitObject(commit)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: load commit %s: %w", commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: tree of %s: %w", commit, err)
	}

	var out []repository.TreeEntry
	iter := tree.Files()
	defer iter.Close()
	err = iter.ForEach(func(f *gitobject.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out = append(out, repository.TreeEntry{Path: f.Name})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitrepo: list tree %s: %w", commit, err)
	}
	return out, nil
}

var _ repository.Accessor = (*Accessor)(nil)
