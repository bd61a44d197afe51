package gitrepo

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"github.com/kev0960/crep/repository"
)

// scriptedRepo builds an in-memory git repository and returns an Accessor
// over it, plus a helper to write a file and commit it.
type scriptedRepo struct {
	t    *testing.T
	repo *gogit.Repository
	wt   *gogit.Worktree
	when time.Time
}

func newScriptedRepo(t *testing.T) *scriptedRepo {
	t.Helper()
	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := gogit.Init(storer, fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &scriptedRepo{t: t, repo: repo, wt: wt, when: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *scriptedRepo) write(path, content string) {
	s.t.Helper()
	f, err := s.wt.Filesystem.Create(path)
	require.NoError(s.t, err)
	_, err = f.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, f.Close())
}

func (s *scriptedRepo) remove(path string) {
	s.t.Helper()
	require.NoError(s.t, s.wt.Filesystem.Remove(path))
}

func (s *scriptedRepo) commit(msg string) object.Hash {
	s.t.Helper()
	err := s.wt.AddWithOptions(&gogit.AddOptions{All: true})
	require.NoError(s.t, err)
	s.when = s.when.Add(time.Hour)
	hash, err := s.wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: s.when},
	})
	require.NoError(s.t, err)
	return hash
}

func TestCommitsWalksFirstParentOldestFirst(t *testing.T) {
	s := newScriptedRepo(t)
	s.write("a.txt", "one\n")
	s.commit("first")
	s.write("a.txt", "one\ntwo\n")
	s.commit("second")
	s.write("a.txt", "one\ntwo\nthree\n")
	third := s.commit("third")

	a := New(s.repo)
	metas, err := a.Commits(context.Background(), third.String())
	require.NoError(t, err)
	require.Len(t, metas, 3)

	require.Equal(t, "first", metas[0].Summary)
	require.Equal(t, "second", metas[1].Summary)
	require.Equal(t, "third", metas[2].Summary)
	require.Empty(t, metas[0].Parents)
	require.Len(t, metas[1].Parents, 1)
	require.True(t, metas[1].Parents[0].Equal(metas[0].ID))
}

func TestDiffRootCommitReportsAllAdded(t *testing.T) {
	s := newScriptedRepo(t)
	s.write("a.txt", "one\n")
	s.write("b.txt", "two\n")
	hash := s.commit("initial")

	a := New(s.repo)
	id := toCommitID(hash)
	changes, err := a.Diff(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for _, c := range changes {
		require.Equal(t, repository.Added, c.Kind)
	}
}

func TestDiffModifiedFileProducesHunks(t *testing.T) {
	s := newScriptedRepo(t)
	s.write("a.txt", "one\ntwo\nthree\n")
	s.commit("initial")
	s.write("a.txt", "one\nTWO\nthree\nfour\n")
	second := s.commit("modify")

	a := New(s.repo)
	changes, err := a.Diff(context.Background(), toCommitID(second))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "a.txt", changes[0].Path)
	require.NotEmpty(t, changes[0].Hunks)
}

func TestDiffDeletedFile(t *testing.T) {
	s := newScriptedRepo(t)
	s.write("a.txt", "one\n")
	s.write("b.txt", "two\n")
	s.commit("initial")
	s.remove("b.txt")
	second := s.commit("delete b")

	a := New(s.repo)
	changes, err := a.Diff(context.Background(), toCommitID(second))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "b.txt", changes[0].Path)
}

func TestReadBlobAndListTree(t *testing.T) {
	s := newScriptedRepo(t)
	s.write("a.txt", "hello\n")
	s.write("dir/b.txt", "world\n")
	hash := s.commit("initial")

	a := New(s.repo)
	id := toCommitID(hash)

	blob, err := a.ReadBlob(context.Background(), id, "a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(blob))

	entries, err := a.ListTree(context.Background(), id)
	require.NoError(t, err)
	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = true
	}
	require.True(t, paths["a.txt"])
	require.True(t, paths["dir/b.txt"])
}
