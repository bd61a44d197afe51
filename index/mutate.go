package index

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/difftracker"
	"github.com/kev0960/crep/document"
	"github.com/kev0960/crep/fst"
	"github.com/kev0960/crep/internal/trace"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/kev0960/crep/textgate"
	"github.com/kev0960/crep/tokenize"
)

// fullAdd implements the "file added" / root-tree branch of spec §4.6 step
// 2/3: tokenize the whole blob and call add_words at ord, seeding a fresh
// diff tracker.
func fullAdd(
	ctx context.Context,
	accessor repository.Accessor,
	commitID plumbing.CommitID,
	ord plumbing.CommitOrdinal,
	path string,
	st *fileWorkingState,
	doc *document.Document,
	lifetime *bitset.Bitmap,
	mode tokenize.Mode,
	utf8Permissive bool,
	stats *IndexStats,
) ([]tokenize.Token, error) {
	blob, err := accessor.ReadBlob(ctx, commitID, path)
	if err != nil {
		return nil, fmt.Errorf("read blob %s@%s: %w", path, commitID, err)
	}

	numLines := len(tokenize.Lines(blob))
	st.tracker = difftracker.NewFullAdd(ord, numLines)

	content, ok := textgate.Classify(blob, utf8Permissive)
	if !ok {
		stats.BinaryOrNonText++
		st.lastContent = nil
		lifetime.Set(uint32(ord))
		return nil, nil
	}
	st.lastContent = content

	tokenLines := tokenize.IndexTokens(content, mode)
	doc.AddWords(ord, tokenLines)
	lifetime.Set(uint32(ord))

	tokens := make([]tokenize.Token, 0, len(tokenLines))
	for t := range tokenLines {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// removeDocument implements the "file deleted" branch: close every live
// instance at ord and drop the diff tracker.
func removeDocument(ord plumbing.CommitOrdinal, st *fileWorkingState, doc *document.Document, lifetime *bitset.Bitmap) {
	doc.RemoveDocument(ord)
	st.tracker = nil
	st.lastContent = nil
	lifetime.Set(uint32(ord))
}

// applyModification implements the "file modified" branch: feed the
// commit's hunks to the diff tracker, resolve which tokens were removed
// (tokenizing the old content at the lines the tracker reports as
// removed) and which were added (tokenizing the hunks' literal added-line
// text), then call remove_words/add_words.
func applyModification(
	ctx context.Context,
	accessor repository.Accessor,
	commitID plumbing.CommitID,
	ord plumbing.CommitOrdinal,
	ch repository.FileChange,
	st *fileWorkingState,
	doc *document.Document,
	lifetime *bitset.Bitmap,
	mode tokenize.Mode,
	utf8Permissive bool,
	stats *IndexStats,
) ([]tokenize.Token, error) {
	if st.tracker == nil {
		return nil, fmt.Errorf("modification reported for %s with no prior tracker state", ch.Path)
	}
	lifetime.Set(uint32(ord))

	trace.Diff.Printf("index: applying %d hunk(s) to %s at commit %s", len(ch.Hunks), ch.Path, commitID)
	removedInstances := difftracker.Apply(st.tracker, ord, ch.Hunks)

	var removedKeys []document.WordKey
	if st.lastContent != nil {
		for _, ri := range removedInstances {
			for _, tok := range tokenize.TokensOnLine(st.lastContent, mode, ri.Line) {
				removedKeys = append(removedKeys, document.WordKey{Token: tok, Line: ri.OriginLine})
			}
		}
	}
	if len(removedKeys) > 0 {
		doc.RemoveWords(ord, removedKeys)
	}

	addedTokenLines := make(map[tokenize.Token]map[int]struct{})
	for _, h := range ch.Hunks {
		for i, text := range h.AddedLines {
			line := h.NewStart + i
			for _, tok := range tokenize.TokensOfText(text, mode) {
				lines, ok := addedTokenLines[tok]
				if !ok {
					lines = make(map[int]struct{})
					addedTokenLines[tok] = lines
				}
				lines[line] = struct{}{}
			}
		}
	}
	if len(addedTokenLines) > 0 {
		doc.AddWords(ord, addedTokenLines)
	}

	blob, err := accessor.ReadBlob(ctx, commitID, ch.Path)
	if err != nil {
		return nil, fmt.Errorf("read blob %s@%s: %w", ch.Path, commitID, err)
	}
	content, ok := textgate.Classify(blob, utf8Permissive)
	if !ok {
		stats.BinaryOrNonText++
		st.lastContent = nil
	} else {
		st.lastContent = bytesClone(content)
	}

	tokens := make([]tokenize.Token, 0, len(addedTokenLines))
	for t := range addedTokenLines {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func bytesClone(b []byte) []byte {
	return bytes.Clone(b)
}

// buildFST builds an fst.Set from a pre-sorted, duplicate-free slice of
// keys, used both for GitIndex.GlobalFST and (indirectly, via
// document.Document.Finalize) per-file token FSTs.
func buildFST(sortedKeys []string) (*fst.Set, error) {
	return fst.Build(sortedKeys)
}
