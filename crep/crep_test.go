package crep

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/kev0960/crep/tokenize"
)

// fakeAccessor mirrors index's own test fixture: a minimal, fully
// in-memory repository.Accessor.
type fakeAccessor struct {
	commits []repository.CommitMeta
	trees   map[string]map[string][]byte
	diffs   map[string][]repository.FileChange
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{
		trees: make(map[string]map[string][]byte),
		diffs: make(map[string][]repository.FileChange),
	}
}

func (f *fakeAccessor) addCommit(id plumbing.CommitID, parents []plumbing.CommitID, summary string, tree map[string][]byte, diff []repository.FileChange) {
	f.commits = append(f.commits, repository.CommitMeta{ID: id, Parents: parents, Summary: summary, When: int64(len(f.commits))})
	f.trees[id.String()] = tree
	f.diffs[id.String()] = diff
}

func (f *fakeAccessor) Commits(ctx context.Context, tip string) ([]repository.CommitMeta, error) {
	return f.commits, nil
}

func (f *fakeAccessor) Diff(ctx context.Context, commit plumbing.CommitID) ([]repository.FileChange, error) {
	return f.diffs[commit.String()], nil
}

func (f *fakeAccessor) ReadBlob(ctx context.Context, commit plumbing.CommitID, path string) ([]byte, error) {
	return f.trees[commit.String()][path], nil
}

func (f *fakeAccessor) ListTree(ctx context.Context, commit plumbing.CommitID) ([]repository.TreeEntry, error) {
	tree := f.trees[commit.String()]
	out := make([]repository.TreeEntry, 0, len(tree))
	for path := range tree {
		out = append(out, repository.TreeEntry{Path: path})
	}
	return out, nil
}

func cid(b byte) plumbing.CommitID {
	return plumbing.NewCommitID([]byte{b})
}

// TestSearchScenarioAlphaBetaAlpha is spec §8 scenario 1: alpha
// introduced at c0, replaced by beta at c1, restored at c2; plain-search
// "alpha" returns first=c0, last=c2.
func TestSearchScenarioAlphaBetaAlpha(t *testing.T) {
	fa := newFakeAccessor()
	c0, c1, c2 := cid(0), cid(1), cid(2)
	fa.addCommit(c0, nil, "introduce alpha", map[string][]byte{"alpha.txt": []byte("alpha\n")}, nil)
	fa.addCommit(c1, []plumbing.CommitID{c0}, "swap to beta", map[string][]byte{"alpha.txt": []byte("beta\n")}, []repository.FileChange{
		{Path: "alpha.txt", Kind: repository.Modified, Hunks: []repository.Hunk{
			{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, AddedLines: []string{"beta"}},
		}},
	})
	fa.addCommit(c2, []plumbing.CommitID{c1}, "restore alpha", map[string][]byte{"alpha.txt": []byte("alpha\n")}, []repository.FileChange{
		{Path: "alpha.txt", Kind: repository.Modified, Hunks: []repository.Hunk{
			{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, AddedLines: []string{"alpha"}},
		}},
	})

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	hits, _, err := idx.Search(context.Background(), "alpha", Plain, 0, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hit := hits[0]
	assert.Equal(t, "alpha.txt", hit.FilePath)
	assert.Equal(t, plumbing.CommitOrdinal(0), hit.First.CommitOrdinal)
	assert.Equal(t, c0, hit.First.CommitID)
	require.NotNil(t, hit.Last)
	assert.Equal(t, plumbing.CommitOrdinal(2), hit.Last.CommitOrdinal)
	assert.Equal(t, c2, hit.Last.CommitID)

	require.Len(t, hit.First.Lines, 1)
	assert.Equal(t, "alpha", hit.First.Lines[0].Content)
}

// TestSearchScenarioRegexSingleCommit is spec §8 scenario 2: a single
// commit, file "x.txt" containing "hello world"; trigram-mode regex
// search for h.llo returns x.txt with first=last=c0, highlight at
// column 0.
func TestSearchScenarioRegexSingleCommit(t *testing.T) {
	fa := newFakeAccessor()
	c0 := cid(0)
	fa.addCommit(c0, nil, "initial", map[string][]byte{"x.txt": []byte("hello world\n")}, nil)

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Trigram, false)
	require.NoError(t, err)

	hits, _, err := idx.Search(context.Background(), "h.llo", Regex, 0, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hit := hits[0]
	assert.Equal(t, "x.txt", hit.FilePath)
	assert.Equal(t, plumbing.CommitOrdinal(0), hit.First.CommitOrdinal)
	assert.Nil(t, hit.Last)
}

// TestSearchScenarioAddThenDelete is spec §8 scenario 3: file "a.go"
// added at c0, deleted at c3; search for a token unique to a.go returns
// last=c2.
func TestSearchScenarioAddThenDelete(t *testing.T) {
	fa := newFakeAccessor()
	c0, c1, c2, c3 := cid(0), cid(1), cid(2), cid(3)
	fa.addCommit(c0, nil, "add a.go", map[string][]byte{"a.go": []byte("package unique\n")}, nil)
	fa.addCommit(c1, []plumbing.CommitID{c0}, "noop", map[string][]byte{"a.go": []byte("package unique\n")}, nil)
	fa.addCommit(c2, []plumbing.CommitID{c1}, "noop", map[string][]byte{"a.go": []byte("package unique\n")}, nil)
	fa.addCommit(c3, []plumbing.CommitID{c2}, "delete a.go", map[string][]byte{}, []repository.FileChange{
		{Path: "a.go", Kind: repository.Deleted},
	})

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	hits, _, err := idx.Search(context.Background(), "unique", Plain, 0, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, plumbing.CommitOrdinal(0), hits[0].First.CommitOrdinal)
	require.NotNil(t, hits[0].Last)
	assert.Equal(t, plumbing.CommitOrdinal(2), hits[0].Last.CommitOrdinal)
}

// TestSearchScenarioTwoFilesOrderedByFirstSeen is spec §8 scenario 4:
// two files sharing token "foo" introduced at c0 and c5 respectively;
// plain-search "foo" returns both, ordered by first-seen ascending.
func TestSearchScenarioTwoFilesOrderedByFirstSeen(t *testing.T) {
	fa := newFakeAccessor()
	var ids []plumbing.CommitID
	for i := byte(0); i <= 5; i++ {
		ids = append(ids, cid(i))
	}

	fa.addCommit(ids[0], nil, "c0", map[string][]byte{"file_a.txt": []byte("foo\n")}, nil)
	for i := 1; i <= 4; i++ {
		fa.addCommit(ids[i], []plumbing.CommitID{ids[i-1]}, "noop", map[string][]byte{"file_a.txt": []byte("foo\n")}, nil)
	}
	fa.addCommit(ids[5], []plumbing.CommitID{ids[4]}, "c5", map[string][]byte{
		"file_a.txt": []byte("foo\n"),
		"file_b.txt": []byte("foo\n"),
	}, []repository.FileChange{{Path: "file_b.txt", Kind: repository.Added}})

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	hits, _, err := idx.Search(context.Background(), "foo", Plain, 0, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "file_a.txt", hits[0].FilePath)
	assert.Equal(t, plumbing.CommitOrdinal(0), hits[0].First.CommitOrdinal)
	assert.Equal(t, "file_b.txt", hits[1].FilePath)
	assert.Equal(t, plumbing.CommitOrdinal(5), hits[1].First.CommitOrdinal)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	fa := newFakeAccessor()
	fa.addCommit(cid(0), nil, "c0", map[string][]byte{"a.txt": []byte("x\n")}, nil)
	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	_, _, err = idx.Search(context.Background(), "", Plain, 0, NoDeadline)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchRespectsLimit(t *testing.T) {
	fa := newFakeAccessor()
	c0 := cid(0)
	fa.addCommit(c0, nil, "c0", map[string][]byte{
		"a.txt": []byte("shared\n"),
		"b.txt": []byte("shared\n"),
	}, nil)

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	hits, _, err := idx.Search(context.Background(), "shared", Plain, 1, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearchHonorsDeadline(t *testing.T) {
	fa := newFakeAccessor()
	fa.addCommit(cid(0), nil, "c0", map[string][]byte{"a.txt": []byte("shared\n")}, nil)
	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	// A deadline in the past never causes an error: a cut-short search
	// still returns whatever hits were finalised, marked as truncated.
	_, _, err = idx.Search(context.Background(), "shared", Plain, 0, time.Nanosecond)
	require.NoError(t, err)
}

// TestSearchZeroDeadlineIsAlreadyExpired is spec §8 scenario 6: a
// deadline of 0ms yields an empty result set with truncated=true and no
// errors, distinct from NoDeadline's "run to completion".
func TestSearchZeroDeadlineIsAlreadyExpired(t *testing.T) {
	fa := newFakeAccessor()
	fa.addCommit(cid(0), nil, "c0", map[string][]byte{"a.txt": []byte("shared\n")}, nil)
	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	hits, truncated, err := idx.Search(context.Background(), "shared", Plain, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.True(t, truncated)
}

func TestSaveLoadThenSearch(t *testing.T) {
	fa := newFakeAccessor()
	c0 := cid(0)
	fa.addCommit(c0, nil, "c0", map[string][]byte{"a.txt": []byte("alpha\n")}, nil)

	idx, _, err := Build(context.Background(), fa, "tip", tokenize.Word, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, idx))

	reloaded, err := Load(&buf, fa)
	require.NoError(t, err)

	hits, _, err := reloaded.Search(context.Background(), "alpha", Plain, 0, NoDeadline)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.txt", hits[0].FilePath)
}
