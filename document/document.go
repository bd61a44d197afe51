// Package document implements the per-file Document record of spec §4.5:
// commit_inclusion bitmaps keyed by token, a live-instance priority queue
// tracking which (token, line) occurrences are still open, and the
// per-file token_fst built at finalization.
package document

import (
	"container/heap"
	"sort"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/fst"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

// WordKey identifies a single token instance within a file snapshot: the
// token plus the line it occurs on (spec's WordKey in the GLOSSARY).
type WordKey struct {
	Token tokenize.Token
	Line  int
}

// instance is one entry of the live-instance priority queue: a still-open
// or just-closed occurrence of a token at a specific line, tracking the
// commit ordinal that introduced it.
type instance struct {
	key    WordKey
	origin plumbing.CommitOrdinal
	end    plumbing.CommitOrdinal // plumbing.OpenOrdinal while live
	index  int                    // heap.Interface bookkeeping
}

// instanceHeap orders instances by end ordinal ascending; OpenOrdinal is
// the maximum uint32 value so still-live instances always sort last.
type instanceHeap []*instance

func (h instanceHeap) Len() int            { return len(h) }
func (h instanceHeap) Less(i, j int) bool  { return h[i].end < h[j].end }
func (h instanceHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *instanceHeap) Push(x any) {
	e := x.(*instance)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *instanceHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Document is the per-file index record described by spec §4.5.
type Document struct {
	commitInclusion map[tokenize.Token]*bitset.Bitmap
	live            map[WordKey]*instance
	liveHeap        instanceHeap
	tokenFST        *fst.Set
	finalized       bool
}

// New returns an empty Document with no tokens yet recorded.
func New() *Document {
	return &Document{
		commitInclusion: make(map[tokenize.Token]*bitset.Bitmap),
		live:            make(map[WordKey]*instance),
	}
}

func (d *Document) inclusionFor(t tokenize.Token) *bitset.Bitmap {
	b, ok := d.commitInclusion[t]
	if !ok {
		b = bitset.New()
		d.commitInclusion[t] = b
	}
	return b
}

// fillRange sets every ordinal in [lo, hi] (inclusive) on b.
func fillRange(b *bitset.Bitmap, lo, hi plumbing.CommitOrdinal) {
	for o := lo; o <= hi; o++ {
		b.Set(uint32(o))
	}
}

// AddWords implements add_words: for each token, sets bit newOrdinal in
// commit_inclusion[token] and pushes a live instance for each line the
// token occurs on at newOrdinal.
func (d *Document) AddWords(newOrdinal plumbing.CommitOrdinal, tokenLines map[tokenize.Token]map[int]struct{}) {
	if d.finalized {
		panic("document: AddWords called on a finalized Document")
	}
	for tok, lines := range tokenLines {
		inclusion := d.inclusionFor(tok)
		inclusion.Set(uint32(newOrdinal))
		for line := range lines {
			key := WordKey{Token: tok, Line: line}
			if _, exists := d.live[key]; exists {
				panic("document: duplicate live WordKey on AddWords")
			}
			e := &instance{key: key, origin: newOrdinal, end: plumbing.OpenOrdinal}
			d.live[key] = e
			heap.Push(&d.liveHeap, e)
		}
	}
}

// close removes key from the live set, seals it with endOrdinal, and
// extends commit_inclusion[key.Token] to cover [origin, endOrdinal].
func (d *Document) close(key WordKey, endOrdinal plumbing.CommitOrdinal) {
	e, ok := d.live[key]
	if !ok {
		return
	}
	heap.Remove(&d.liveHeap, e.index)
	delete(d.live, key)
	e.end = endOrdinal
	fillRange(d.inclusionFor(key.Token), e.origin, endOrdinal)
}

// RemoveWords implements remove_words: every key in removed is closed with
// end = newOrdinal-1, and its token's commit_inclusion is extended to
// cover the full range it was live for.
func (d *Document) RemoveWords(newOrdinal plumbing.CommitOrdinal, removed []WordKey) {
	if d.finalized {
		panic("document: RemoveWords called on a finalized Document")
	}
	for _, key := range removed {
		d.close(key, newOrdinal-1)
	}
}

// RemoveDocument implements remove_document: every currently live instance
// is closed at newOrdinal, equivalent to the file being deleted.
func (d *Document) RemoveDocument(newOrdinal plumbing.CommitOrdinal) {
	if d.finalized {
		panic("document: RemoveDocument called on a finalized Document")
	}
	keys := make([]WordKey, 0, len(d.live))
	for key := range d.live {
		keys = append(keys, key)
	}
	d.RemoveWords(newOrdinal, keys)
}

// Finalize implements finalize(last_ordinal): every still-open instance is
// closed with end=lastOrdinal, and token_fst is built from the union of
// every token ever referenced by this Document.
func (d *Document) Finalize(lastOrdinal plumbing.CommitOrdinal) error {
	if d.finalized {
		panic("document: Finalize called twice")
	}
	for d.liveHeap.Len() > 0 {
		e := d.liveHeap[0]
		d.close(e.key, lastOrdinal)
	}

	tokens := make([]string, 0, len(d.commitInclusion))
	for t := range d.commitInclusion {
		tokens = append(tokens, string(t))
	}
	sort.Strings(tokens)

	set, err := fst.Build(tokens)
	if err != nil {
		return err
	}
	d.tokenFST = set
	d.finalized = true
	return nil
}

// CommitInclusion returns the commit_inclusion bitmap for t, or nil if t
// was never seen by this Document.
func (d *Document) CommitInclusion(t tokenize.Token) *bitset.Bitmap {
	return d.commitInclusion[t]
}

// Tokens returns every token this Document has ever recorded.
func (d *Document) Tokens() []tokenize.Token {
	out := make([]tokenize.Token, 0, len(d.commitInclusion))
	for t := range d.commitInclusion {
		out = append(out, t)
	}
	return out
}

// TokenFST returns the Document's per-file token set, built at Finalize.
// It is nil until the Document has been finalized.
func (d *Document) TokenFST() *fst.Set {
	return d.tokenFST
}

// Finalized reports whether Finalize has already been called.
func (d *Document) Finalized() bool {
	return d.finalized
}

// LiveKeys returns the WordKeys still open, for tests asserting the
// monotonicity/finality invariants of spec §8.
func (d *Document) LiveKeys() []WordKey {
	out := make([]WordKey, 0, len(d.live))
	for k := range d.live {
		out = append(out, k)
	}
	return out
}

// Restore reconstructs an already-finalized Document from a persisted
// index's sections: the per-token commit_inclusion bitmaps and the
// serialized token_fst. It is the inverse of the state Finalize leaves
// behind, used by index.Load (spec §4.7).
func Restore(inclusion map[tokenize.Token]*bitset.Bitmap, tokenFST *fst.Set) *Document {
	d := New()
	for t, b := range inclusion {
		d.commitInclusion[t] = b
	}
	d.tokenFST = tokenFST
	d.finalized = true
	return d
}
