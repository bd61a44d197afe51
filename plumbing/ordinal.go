package plumbing

import "fmt"

// CommitOrdinal is the dense, non-negative, topological-order index
// assigned to a commit as the history indexer walks it. Ordinal 0 is the
// root commit of the walk; ordinals are never reused.
type CommitOrdinal uint32

// OpenOrdinal is the sentinel end-ordinal used by document.Document for a
// token instance that is still live (has not been removed by a later
// commit).
const OpenOrdinal CommitOrdinal = ^CommitOrdinal(0)

// FileID is the dense, non-negative index assigned to a file path the
// first time it is seen during the walk. A path removed and later
// re-added keeps its original FileID.
type FileID uint32

// OrdinalTable maintains the bijective CommitOrdinal <-> CommitID maps
// described by spec §3. It is populated only by the history indexer
// during the walk and is read-only afterwards.
type OrdinalTable struct {
	idByOrdinal []CommitID
	ordinalByID map[CommitID]CommitOrdinal
}

// NewOrdinalTable returns an empty table ready to be appended to.
func NewOrdinalTable() *OrdinalTable {
	return &OrdinalTable{
		ordinalByID: make(map[CommitID]CommitOrdinal),
	}
}

// Append assigns the next free ordinal to id and returns it. It panics if
// id was already assigned an ordinal, which would violate the bijection
// invariant.
func (t *OrdinalTable) Append(id CommitID) CommitOrdinal {
	if _, ok := t.ordinalByID[id]; ok {
		panic(fmt.Sprintf("plumbing: commit %s already has an ordinal", id))
	}
	ord := CommitOrdinal(len(t.idByOrdinal))
	t.idByOrdinal = append(t.idByOrdinal, id)
	t.ordinalByID[id] = ord
	return ord
}

// Ordinal looks up the ordinal assigned to id.
func (t *OrdinalTable) Ordinal(id CommitID) (CommitOrdinal, bool) {
	ord, ok := t.ordinalByID[id]
	return ord, ok
}

// CommitID looks up the commit id assigned to ord.
func (t *OrdinalTable) CommitID(ord CommitOrdinal) (CommitID, bool) {
	if int(ord) < 0 || int(ord) >= len(t.idByOrdinal) {
		return ZeroCommitID, false
	}
	return t.idByOrdinal[ord], true
}

// Len returns the number of commits visited so far.
func (t *OrdinalTable) Len() int {
	return len(t.idByOrdinal)
}

// Last returns the highest assigned ordinal. It panics on an empty table.
func (t *OrdinalTable) Last() CommitOrdinal {
	if len(t.idByOrdinal) == 0 {
		panic("plumbing: Last called on an empty OrdinalTable")
	}
	return CommitOrdinal(len(t.idByOrdinal) - 1)
}
