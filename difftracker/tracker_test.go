package difftracker

import (
	"testing"

	"github.com/kev0960/crep/repository"
	"github.com/stretchr/testify/assert"
)

func TestNewFullAddTracksEveryLine(t *testing.T) {
	tr := NewFullAdd(0, 3)
	assert.Equal(t, []int{1, 2, 3}, tr.LiveLines())
}

func TestApplyPureInsertion(t *testing.T) {
	tr := NewFullAdd(0, 3) // lines 1,2,3 from commit 0
	removed := Apply(tr, 1, []repository.Hunk{
		{OldStart: 2, OldCount: 0, NewStart: 2, NewCount: 1, AddedLines: []string{"new"}},
	})
	assert.Empty(t, removed)
	// line 1 stays, new line 2 inserted, old line 2 shifts to 3, old line 3 shifts to 4
	assert.Equal(t, []int{1, 2, 3, 4}, tr.LiveLines())
}

func TestApplyPureDeletionResolvesOrigin(t *testing.T) {
	tr := NewFullAdd(0, 3)
	removed := Apply(tr, 1, []repository.Hunk{
		{OldStart: 2, OldCount: 1, NewStart: 2, NewCount: 0},
	})
	if assert.Len(t, removed, 1) {
		assert.Equal(t, 2, removed[0].Line)
		assert.Equal(t, uint32(0), uint32(removed[0].OriginCommit))
	}
	assert.Equal(t, []int{1, 2}, tr.LiveLines()) // old line 3 shifted down to 2
}

func TestApplyReplacement(t *testing.T) {
	tr := NewFullAdd(0, 1) // single line "alpha"
	removed := Apply(tr, 1, []repository.Hunk{
		{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, AddedLines: []string{"beta"}},
	})
	assert.Len(t, removed, 1)
	assert.Equal(t, []int{1}, tr.LiveLines())
}

func TestRemoveAllClearsTracker(t *testing.T) {
	tr := NewFullAdd(0, 2)
	removed := RemoveAll(tr, 1)
	assert.Len(t, removed, 2)
	assert.Empty(t, tr.LiveLines())
}

func TestApplyKeySetInvariantAfterMultipleHunks(t *testing.T) {
	tr := NewFullAdd(0, 5)
	Apply(tr, 1, []repository.Hunk{
		{OldStart: 2, OldCount: 1, NewStart: 2, NewCount: 0},       // delete line 2
		{OldStart: 4, OldCount: 0, NewStart: 3, NewCount: 1, AddedLines: []string{"x"}}, // insert after old line 3
	})
	// resulting file has: old1, old3, new, old4, old5 = 5 lines
	assert.Len(t, tr.LiveLines(), 5)
}
